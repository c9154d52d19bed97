package ingest

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Source is one file offered for ingestion
type Source interface {
	Name() string
	// MediaType is the declared type, empty when the sender gave none
	MediaType() string
	// Size is the declared size, -1 when unknown
	Size() int64
	Open() (io.ReadCloser, error)
}

type multipartSource struct {
	header *multipart.FileHeader
}

// FromMultipart wraps an uploaded form file
func FromMultipart(header *multipart.FileHeader) Source {
	return &multipartSource{header: header}
}

func (s *multipartSource) Name() string      { return filepath.Base(s.header.Filename) }
func (s *multipartSource) MediaType() string { return s.header.Header.Get("Content-Type") }
func (s *multipartSource) Size() int64       { return s.header.Size }
func (s *multipartSource) Open() (io.ReadCloser, error) {
	return s.header.Open()
}

type pathSource struct {
	path string
	size int64
}

// FromPath wraps a local file. The media type is left empty so it is sniffed from content.
func FromPath(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &pathSource{path: path, size: info.Size()}, nil
}

func (s *pathSource) Name() string      { return filepath.Base(s.path) }
func (s *pathSource) MediaType() string { return "" }
func (s *pathSource) Size() int64       { return s.size }
func (s *pathSource) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}

type bytesSource struct {
	name      string
	mediaType string
	data      []byte
}

// FromBytes wraps in-memory content
func FromBytes(name, mediaType string, data []byte) Source {
	return &bytesSource{name: name, mediaType: mediaType, data: data}
}

func (s *bytesSource) Name() string      { return s.name }
func (s *bytesSource) MediaType() string { return s.mediaType }
func (s *bytesSource) Size() int64       { return int64(len(s.data)) }
func (s *bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}
