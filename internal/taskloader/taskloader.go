// Package taskloader reads and writes task configuration files from a
// directory (spec.md §3/§4.5), where a single YAML file may define
// several named tasks keyed at the top level. Grounded on
// original_source's TaskLoader.py: file grouping by filename, whole-file
// rewrite on every mutation.
package taskloader

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
	"github.com/OpenTouch/night-watch/internal/nwlog"
	"github.com/OpenTouch/night-watch/internal/nwtypes"
	"gopkg.in/yaml.v3"
)

// NamedTask pairs a task's name with its configuration and the file it
// is (or should be) persisted in.
type NamedTask struct {
	Name     string
	Config   nwtypes.TaskConfig
	Filename string
}

// Loader reads and writes task files under a single directory.
type Loader struct {
	dir string
}

func New(dir string) *Loader {
	return &Loader{dir: dir}
}

func (l *Loader) path(filename string) string {
	return filepath.Join(l.dir, filename)
}

// ListFiles returns every file directly under the tasks directory.
func (l *Loader) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindTaskFileIOError, err, "listing tasks directory %q", l.dir)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadFile parses filename into its named task configurations, keyed
// by task name within that file.
func (l *Loader) LoadFile(filename string) (map[string]nwtypes.TaskConfig, error) {
	data, err := os.ReadFile(l.path(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nwerrors.Wrap(nwerrors.KindTaskFileIOError, err, "tasks file %q does not exist", filename)
		}
		return nil, nwerrors.Wrap(nwerrors.KindTaskFileIOError, err, "reading tasks file %q", filename)
	}

	var raw map[string]nwtypes.TaskConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindTaskFileInvalid, err, "tasks file %q is not valid YAML", filename)
	}
	return raw, nil
}

// LoadTaskFromFile returns a single named task's configuration from a
// file, or a TaskNotFound error if it isn't defined there.
func (l *Loader) LoadTaskFromFile(filename, taskName string) (nwtypes.TaskConfig, error) {
	tasks, err := l.LoadFile(filename)
	if err != nil {
		return nwtypes.TaskConfig{}, err
	}
	cfg, ok := tasks[taskName]
	if !ok {
		return nwtypes.TaskConfig{}, nwerrors.TaskNotFound(taskName)
	}
	return cfg, nil
}

// LoadAll reads every file in the tasks directory, returning every
// defined task across all of them as a flat list.
func (l *Loader) LoadAll() ([]NamedTask, error) {
	files, err := l.ListFiles()
	if err != nil {
		return nil, err
	}

	var out []NamedTask
	for _, filename := range files {
		tasks, err := l.LoadFile(filename)
		if err != nil {
			nwlog.WithComponent("taskloader").Error().Err(err).Str("file", filename).Msg("skipping unreadable tasks file")
			continue
		}
		names := make([]string, 0, len(tasks))
		for name := range tasks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, NamedTask{Name: name, Config: tasks[name], Filename: filename})
		}
	}
	return out, nil
}

// WriteFile rewrites filename in full with the given task set, matching
// original_source's whole-file overwrite semantics.
func (l *Loader) WriteFile(filename string, tasks map[string]nwtypes.TaskConfig) error {
	if len(tasks) == 0 {
		return l.deleteFile(filename)
	}

	data, err := yaml.Marshal(tasks)
	if err != nil {
		return nwerrors.Wrap(nwerrors.KindTaskFileIOError, err, "encoding tasks file %q", filename)
	}
	if err := os.WriteFile(l.path(filename), data, 0o644); err != nil {
		return nwerrors.Wrap(nwerrors.KindTaskFileIOError, err, "writing tasks file %q", filename)
	}
	return nil
}

func (l *Loader) deleteFile(filename string) error {
	if err := os.Remove(l.path(filename)); err != nil && !os.IsNotExist(err) {
		return nwerrors.Wrap(nwerrors.KindTaskFileIOError, err, "deleting tasks file %q", filename)
	}
	return nil
}

// AddTasksInFiles adds or overwrites the given tasks in their target
// files, grouping by filename so each file is rewritten once.
func (l *Loader) AddTasksInFiles(tasks []NamedTask) error {
	return l.mutateGrouped(tasks, func(existing map[string]nwtypes.TaskConfig, t NamedTask) {
		existing[t.Name] = t.Config
	})
}

// UpdateTasksInFiles overwrites existing tasks in place.
func (l *Loader) UpdateTasksInFiles(tasks []NamedTask) error {
	return l.mutateGrouped(tasks, func(existing map[string]nwtypes.TaskConfig, t NamedTask) {
		existing[t.Name] = t.Config
	})
}

// RemoveTasksFromFiles deletes the named tasks from their files,
// deleting the file entirely once it has no tasks left.
func (l *Loader) RemoveTasksFromFiles(tasks []NamedTask) error {
	return l.mutateGrouped(tasks, func(existing map[string]nwtypes.TaskConfig, t NamedTask) {
		delete(existing, t.Name)
	})
}

func (l *Loader) mutateGrouped(tasks []NamedTask, apply func(existing map[string]nwtypes.TaskConfig, t NamedTask)) error {
	byFile := make(map[string][]NamedTask)
	for _, t := range tasks {
		byFile[t.Filename] = append(byFile[t.Filename], t)
	}

	for filename, group := range byFile {
		existing, err := l.LoadFile(filename)
		if err != nil {
			kind, _ := nwerrors.KindOf(err)
			if kind != nwerrors.KindTaskFileIOError {
				return err
			}
			existing = map[string]nwtypes.TaskConfig{}
		}
		if existing == nil {
			existing = map[string]nwtypes.TaskConfig{}
		}
		for _, t := range group {
			apply(existing, t)
		}
		if err := l.WriteFile(filename, existing); err != nil {
			return err
		}
	}
	return nil
}
