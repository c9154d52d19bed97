package common

import (
	"github.com/google/uuid"
)

// NewFileID generates a unique file record ID
// Format: file_<uuid>
func NewFileID() string {
	return "file_" + uuid.New().String()
}

// NewCustomerID generates a unique customer ID
// Format: cust_<uuid>
func NewCustomerID() string {
	return "cust_" + uuid.New().String()
}

// NewBlobRef generates a transient blob handle
// Format: blob:<uuid>
func NewBlobRef() string {
	return "blob:" + uuid.New().String()
}
