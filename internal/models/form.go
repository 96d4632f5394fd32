package models

// ImageKind tags the variant held by an ImageField.
type ImageKind int

const (
	// ImageUnset means no image was chosen.
	ImageUnset ImageKind = iota
	// ImageLocalFile is a freshly selected file that must be uploaded.
	ImageLocalFile
	// ImageRemoteReference is the path of an image already stored by the backend.
	ImageRemoteReference
)

func (k ImageKind) String() string {
	switch k {
	case ImageLocalFile:
		return "local_file"
	case ImageRemoteReference:
		return "remote_reference"
	default:
		return "unset"
	}
}

// ImageField is the image value of a ProductForm. Only one variant is set at a time.
type ImageField struct {
	kind     ImageKind
	fileName string
	content  []byte
	ref      string
}

// NoImage returns an unset ImageField.
func NoImage() ImageField {
	return ImageField{}
}

// LocalFile returns an ImageField holding a newly chosen file.
func LocalFile(fileName string, content []byte) ImageField {
	return ImageField{kind: ImageLocalFile, fileName: fileName, content: content}
}

// RemoteReference returns an ImageField pointing at an existing backend image.
// An empty reference is treated as no image.
func RemoteReference(ref string) ImageField {
	if ref == "" {
		return NoImage()
	}
	return ImageField{kind: ImageRemoteReference, ref: ref}
}

// Kind returns the variant tag.
func (f ImageField) Kind() ImageKind {
	return f.kind
}

// File returns the selected file, ok is false unless the field is a local file.
func (f ImageField) File() (fileName string, content []byte, ok bool) {
	if f.kind != ImageLocalFile {
		return "", nil, false
	}
	return f.fileName, f.content, true
}

// Reference returns the remote image path, ok is false unless the field is a remote reference.
func (f ImageField) Reference() (string, bool) {
	if f.kind != ImageRemoteReference {
		return "", false
	}
	return f.ref, true
}

// ProductForm is the transient, editable copy of a product used by add and edit flows.
type ProductForm struct {
	Name        string     `validate:"required"`
	Description string     `validate:"required"`
	Image       ImageField `validate:"-"`
}
