package validation

import (
	"bytes"
	"io"
	"mime/multipart"
)

type FileType string

const (
	FileTypePNG  FileType = "png"
	FileTypeJPEG FileType = "jpeg"
	FileTypeGIF  FileType = "gif"
	FileTypeWEBP FileType = "webp"
)

var magicBytes = map[FileType][]byte{
	FileTypePNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	FileTypeJPEG: {0xFF, 0xD8, 0xFF},
	FileTypeGIF:  {0x47, 0x49, 0x46, 0x38},
	FileTypeWEBP: {0x52, 0x49, 0x46, 0x46},
}

var contentTypes = map[FileType]string{
	FileTypePNG:  "image/png",
	FileTypeJPEG: "image/jpeg",
	FileTypeGIF:  "image/gif",
	FileTypeWEBP: "image/webp",
}

// DetectFileType sniffs the file's magic bytes and rewinds the reader.
func DetectFileType(file multipart.File) (FileType, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	for fileType, signature := range magicBytes {
		if bytes.HasPrefix(buffer[:n], signature) {
			return fileType, nil
		}
	}

	return "", ErrInvalidFileType
}

// ContentType returns the MIME type for a detected file type.
func ContentType(fileType FileType) string {
	if ct, ok := contentTypes[fileType]; ok {
		return ct
	}
	return "application/octet-stream"
}
