package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"envscan/internal/archive"
	"envscan/internal/evolution"
	"envscan/internal/registry"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minMiB mebibytes available to unprivileged users. minMiB <= 0 only reports.
func CheckFreeSpace(name, path string, minMiB int) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(free), path)
	if minMiB > 0 && free < uint64(minMiB)*humanize.MiByte {
		return Result{Name: name, Detail: fmt.Sprintf("%s (below %d MiB floor)", detail, minMiB)}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckRegistry verifies that the workflow registry parses and reports
// whether signal evolution is switched on.
func CheckRegistry(path string) Result {
	const name = "Workflow registry"
	reg, err := registry.Load(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	cfg, err := evolution.ResolveConfig(evolution.Overrides{}, reg.Evolution())
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	state := "evolution disabled"
	if cfg.Enabled {
		state = "evolution enabled"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, state)}
}

// CheckArchive opens the signals archive and reports its size. A missing
// archive passes; the first import creates it.
func CheckArchive(ctx context.Context, path string) Result {
	const name = "Signals archive"
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	store, err := archive.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s signals)", path, humanize.Comma(int64(stats.Total)))}
}

// CheckIndex validates a workflow's evolution index against its schema. A
// missing index passes; the first tracker run creates it.
func CheckIndex(workflow, path string) Result {
	name := "Evolution index " + workflow
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	idx, err := evolution.LoadIndexFile(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	idx.Recount()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d threads, %d active)", path, idx.TotalThreads, idx.ActiveThreads)}
}
