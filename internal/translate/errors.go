package translate

import "errors"

var (
	// ErrTranslation is returned when a text could not be translated.
	// Callers keep the original text.
	ErrTranslation = errors.New("translation failed")

	// ErrDisabled is returned by New when translation is switched off.
	ErrDisabled = errors.New("translation disabled")
)
