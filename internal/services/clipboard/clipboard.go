// Package clipboard provides access to the system clipboard.
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

var _ Copier = (*Service)(nil)

// NewService constructs a clipboard service implementation.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard. On platforms without clipboard
// support an explanatory error is returned instead of a silent no-op.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return errors.New("system clipboard is not supported on this platform")
	}
	return clipboard.WriteAll(text)
}
