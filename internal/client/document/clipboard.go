package document

import (
	"errors"

	"github.com/atotto/clipboard"
)

var errClipboardUnsupported = errors.New("clipboard is not supported on this system")

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

// WriteAll копирует текст в системный буфер обмена
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}
