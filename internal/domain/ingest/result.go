package ingest

import domdoc "github.com/papper-ai/vaultd/internal/domain/document"

// Status is the classified outcome of ingesting a single uploaded file.
type Status string

// Ingestion status values.
const (
	StatusOK          Status = "ok"
	StatusUnsupported Status = "unsupported_type"
	StatusEmpty       Status = "empty_file"
	StatusError       Status = "error"
)

// Result is the tagged outcome of one file ingestion. Classification happens
// here instead of error-type filtering at call sites.
type Result struct {
	fileName string
	status   Status
	doc      domdoc.Document
	err      error
}

// NewOK creates a successful ingestion result carrying the stored document.
func NewOK(fileName string, doc domdoc.Document) Result {
	return Result{fileName: fileName, status: StatusOK, doc: doc}
}

// NewUnsupported creates a result for a file whose format cannot be parsed.
func NewUnsupported(fileName string, err error) Result {
	return Result{fileName: fileName, status: StatusUnsupported, err: err}
}

// NewEmpty creates a result for a file that yielded zero-length text.
func NewEmpty(fileName string, err error) Result {
	return Result{fileName: fileName, status: StatusEmpty, err: err}
}

// NewError creates a result for a storage or encryption failure.
func NewError(fileName string, err error) Result {
	return Result{fileName: fileName, status: StatusError, err: err}
}

// FileName returns the original upload name.
func (r Result) FileName() string { return r.fileName }

// Status returns the classified outcome.
func (r Result) Status() Status { return r.status }

// Document returns the stored document. Valid only when Status is StatusOK.
func (r Result) Document() domdoc.Document { return r.doc }

// Err returns the underlying error, if any.
func (r Result) Err() error { return r.err }
