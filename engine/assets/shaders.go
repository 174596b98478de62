package assets

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vkutility/engine/assets/loaders"
	"github.com/spaghettifunk/vkutility/engine/core"
)

const shaderExt = ".spv"

// ShaderLibrary supplies compiled shader byte-code from a directory. Loaded
// modules are cached until the file changes on disk.
type ShaderLibrary struct {
	dir    string
	loader loaders.BinaryLoader

	mutex    sync.RWMutex
	cache    map[string][]uint32
	onChange func(name string)

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewShaderLibrary(dir string) *ShaderLibrary {
	return &ShaderLibrary{
		dir:   dir,
		cache: make(map[string][]uint32),
	}
}

// Bytecode returns the module stored in "<dir>/<name>.spv".
func (sl *ShaderLibrary) Bytecode(name string) ([]uint32, error) {
	sl.mutex.RLock()
	code, ok := sl.cache[name]
	sl.mutex.RUnlock()
	if ok {
		return code, nil
	}

	code, err := sl.loader.Load(sl.path(name))
	if err != nil {
		return nil, err
	}

	sl.mutex.Lock()
	sl.cache[name] = code
	sl.mutex.Unlock()
	core.LogDebug("Loaded shader '%s' (%d words).", name, len(code))
	return code, nil
}

// OnChange registers fn to be called with the shader name whenever a watched
// module is written, created or removed.
func (sl *ShaderLibrary) OnChange(fn func(name string)) {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	sl.onChange = fn
}

func (sl *ShaderLibrary) Invalidate(name string) {
	sl.mutex.Lock()
	fn := sl.onChange
	delete(sl.cache, name)
	sl.mutex.Unlock()

	if fn != nil {
		fn(name)
	}
}

// Watch starts watching the shader directory for changes.
func (sl *ShaderLibrary) Watch() error {
	if sl.watcher != nil {
		return errors.New("shader library already watching")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(sl.dir); err != nil {
		watcher.Close()
		return err
	}
	sl.watcher = watcher
	sl.done = make(chan struct{})

	sl.wg.Add(1)
	go sl.start()
	core.LogInfo("Watching shaders in %s.", sl.dir)
	return nil
}

func (sl *ShaderLibrary) Close() error {
	if sl.watcher == nil {
		return nil
	}
	close(sl.done)
	sl.wg.Wait()
	err := sl.watcher.Close()
	sl.watcher = nil
	return err
}

func (sl *ShaderLibrary) start() {
	defer sl.wg.Done()
	for {
		select {
		case e, ok := <-sl.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(e.Name, shaderExt) {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				name := strings.TrimSuffix(filepath.Base(e.Name), shaderExt)
				core.LogDebug("Shader '%s' changed on disk (%s).", name, e.Op)
				sl.Invalidate(name)
			}

		case err, ok := <-sl.watcher.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-sl.done:
			return
		}
	}
}

func (sl *ShaderLibrary) path(name string) string {
	return filepath.Join(sl.dir, name+shaderExt)
}
