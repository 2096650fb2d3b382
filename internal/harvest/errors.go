package harvest

import (
	"errors"
	"fmt"

	"github.com/nao1215/reviewharvest/internal/model"
)

// ErrPersistence is returned when a dataset merge fails on every attempt.
var ErrPersistence = errors.New("failed to persist records")

// FetchError is any failure of a single remote call: transport, HTTP
// status, malformed payload or an invalid record.
type FetchError struct {
	Partition model.Partition
	Cursor    string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed: %v", e.Partition, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
