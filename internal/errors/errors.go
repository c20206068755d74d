package errors

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// FileError records a per-file failure observed during a scan.
type FileError struct {
	File      string
	Err       error
	Timestamp time.Time
}

// Error implements the error interface
func (fe *FileError) Error() string {
	return fmt.Sprintf("%s: %v", fe.File, fe.Err)
}

// Unwrap returns the underlying error
func (fe *FileError) Unwrap() error {
	return fe.Err
}

// ErrorCollector collects per-file failures from concurrent parse workers
type ErrorCollector struct {
	fileErrors []FileError
	mutex      sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		fileErrors: make([]FileError, 0),
	}
}

// Add records a failure for a file
func (ec *ErrorCollector) Add(file string, err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.fileErrors = append(ec.fileErrors, FileError{
		File:      file,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// GetErrors returns all collected failures ordered by file
func (ec *ErrorCollector) GetErrors() []FileError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	// Return a copy to avoid race conditions
	result := make([]FileError, len(ec.fileErrors))
	copy(result, ec.fileErrors)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].File < result[j].File
	})
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.fileErrors) > 0
}

// Count returns the number of collected failures
func (ec *ErrorCollector) Count() int {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.fileErrors)
}

// CountByType returns how many failures fall into each error type
func (ec *ErrorCollector) CountByType() map[ErrorType]int {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	counts := make(map[ErrorType]int)
	for _, fe := range ec.fileErrors {
		var ce *ClientError
		if errors.As(fe.Err, &ce) {
			counts[ce.Type]++
		} else {
			counts[ErrorTypeInternal]++
		}
	}
	return counts
}
