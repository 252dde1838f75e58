package install

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// sentinelName is the stage-marker sentinel file recording the highest
// completed stage, per spec §3 and §6 ("a `.aoscbootstrap-stage`
// sentinel file at the root while the run is in progress, removed on
// success").
const sentinelName = ".aoscbootstrap-stage"

func sentinelPath(target string) string {
	return filepath.Join(target, sentinelName)
}

// WriteSentinel records the highest completed stage.
func WriteSentinel(target string, stage Stage) error {
	return os.WriteFile(sentinelPath(target), []byte(strconv.Itoa(int(stage))), 0644)
}

// ReadSentinel returns the highest completed stage recorded for
// target, or -1 if no run has started.
func ReadSentinel(target string) (Stage, error) {
	data, err := os.ReadFile(sentinelPath(target))
	if os.IsNotExist(err) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return -1, fmt.Errorf("parsing stage sentinel: %w", err)
	}
	return Stage(n), nil
}

// RemoveSentinel deletes the sentinel on successful completion.
func RemoveSentinel(target string) error {
	err := os.Remove(sentinelPath(target))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
