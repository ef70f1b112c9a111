package docscan

import "errors"

// Error taxonomy for the scan pipeline. ErrUnsupportedType and
// ErrFileTooLarge are pre-flight failures: nothing has been uploaded or
// processed when they fire. ErrRender and ErrOCR are processing failures.
// A scan that extracts zero fields is not an error.
var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrFileTooLarge    = errors.New("document exceeds size limit")
	ErrRender          = errors.New("document render failed")
	ErrOCR             = errors.New("ocr failed")
)
