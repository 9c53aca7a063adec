package ingest

// File is one uploaded file handed to the ingestion pipeline.
type File struct {
	Name    string
	Content []byte
}
