// Package extract reads the regular files selected by a traversal and
// renders them as a delimited text bundle. Each file becomes one record
// framed by marker lines; files that cannot be rendered as text become
// marker records noting why the content was omitted.
package extract

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/treesnap/treesnap/internal/utils"
	"github.com/treesnap/treesnap/internal/walk"
)

// ErrorPolicy selects what happens when a file cannot be read or decoded.
type ErrorPolicy string

const (
	// ErrorPolicyRaise aborts the extraction on the first failing file.
	ErrorPolicyRaise ErrorPolicy = "raise"
	// ErrorPolicyIgnore replaces a failing file's content with a marker record.
	ErrorPolicyIgnore ErrorPolicy = "ignore"
)

const (
	fileOpenMarkerFormat = "===== FILE: %s ====="
	fileCloseMarker      = "===== END FILE ====="

	binaryContentOmittedMarker = "(binary content omitted)"
	contentOmittedFormat       = "(content omitted: %s)"
	unreadableReason           = "unreadable"
	undecodableReasonFormat    = "not valid %s"

	base64ContentEncoding = "base64"

	errorInvalidErrorPolicyFormat = "invalid error policy %q"
	errorReadingFileFormat        = "reading %s: %w"
)

// Options controls file selection and content handling for an extraction.
type Options struct {
	// FollowSymlinks resolves symbolic links during traversal.
	FollowSymlinks bool
	// Include filters traversal nodes. A nil predicate includes everything.
	Include walk.Predicate
	// IncludeBinary disables the binary skip and decodes every file as text.
	IncludeBinary bool
	// Encoding names the text encoding used to decode file bytes. Empty
	// selects UTF-8.
	Encoding string
	// Errors selects the failure policy. Empty selects ErrorPolicyRaise.
	Errors ErrorPolicy
	// BinaryContentPatterns lists path patterns whose binary content is
	// revealed as base64 instead of being skipped.
	BinaryContentPatterns []string
	// BinaryDetector classifies a content sample as binary. Nil selects
	// utils.IsBinary.
	BinaryDetector func(sample []byte) bool
	// OnError receives recoverable traversal and read failures.
	OnError func(path string, failure error)
}

// Record is one extracted file.
type Record struct {
	// Path is the absolute path of the extracted file.
	Path string
	// RelativePath locates the file below the traversal root, in slash form.
	RelativePath string
	// Content holds the decoded text, or base64 data when ContentEncoding
	// is set, or is empty when Skipped.
	Content string
	// Skipped marks a file whose content was omitted.
	Skipped bool
	// Reason is the marker text rendered in place of skipped content.
	Reason string
	// MimeType is the sniffed content type for binary files.
	MimeType string
	// ContentEncoding names the transfer encoding of Content, currently
	// only "base64" for revealed binary files.
	ContentEncoding string
}

// Bundle is the ordered result of a full extraction.
type Bundle struct {
	Records []Record
}

// String renders the bundle in the delimited format: every record is framed
// by marker lines, consecutive records are separated by one blank line, and
// an empty bundle renders as the empty string.
func (bundle Bundle) String() string {
	if len(bundle.Records) == 0 {
		return ""
	}
	var builder strings.Builder
	for recordIndex, record := range bundle.Records {
		if recordIndex > 0 {
			builder.WriteString("\n")
		}
		body := record.Content
		if record.Skipped {
			body = record.Reason
		}
		builder.WriteString(fmt.Sprintf(fileOpenMarkerFormat, record.RelativePath))
		builder.WriteString("\n")
		builder.WriteString(body)
		builder.WriteString("\n")
		builder.WriteString(fileCloseMarker)
		builder.WriteString("\n")
	}
	return builder.String()
}

// DecodeError reports a file whose bytes are not valid in the requested
// encoding.
type DecodeError struct {
	Path     string
	Encoding string
	Err      error
}

func (decodeError *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s as %s: %v", decodeError.Path, decodeError.Encoding, decodeError.Err)
}

func (decodeError *DecodeError) Unwrap() error {
	return decodeError.Err
}

// extractor carries the per-run state resolved from Options.
type extractor struct {
	options  Options
	decoder  *textDecoder
	isBinary func(sample []byte) bool
}

func newExtractor(options Options) (*extractor, error) {
	if options.Errors == "" {
		options.Errors = ErrorPolicyRaise
	}
	if options.Errors != ErrorPolicyRaise && options.Errors != ErrorPolicyIgnore {
		return nil, fmt.Errorf(errorInvalidErrorPolicyFormat, string(options.Errors))
	}
	decoder, decoderError := newTextDecoder(options.Encoding)
	if decoderError != nil {
		return nil, decoderError
	}
	binaryDetector := options.BinaryDetector
	if binaryDetector == nil {
		binaryDetector = utils.IsBinary
	}
	return &extractor{options: options, decoder: decoder, isBinary: binaryDetector}, nil
}

// Stream traverses rootPath and invokes visit once per selected regular
// file, in traversal order. Records are produced lazily, one file at a
// time; a non-nil error from visit stops the traversal.
func Stream(rootPath string, options Options, visit func(record Record) error) error {
	fileExtractor, extractorError := newExtractor(options)
	if extractorError != nil {
		return extractorError
	}
	walkOptions := walk.Options{
		FollowSymlinks: options.FollowSymlinks,
		Include:        options.Include,
		OnError:        options.OnError,
	}
	return walk.Walk(rootPath, walkOptions, func(event walk.Event) error {
		if event.Kind != walk.EventFile || event.Node.Kind != walk.KindFile {
			return nil
		}
		record, recordError := fileExtractor.buildRecord(event.Node)
		if recordError != nil {
			return recordError
		}
		return visit(record)
	})
}

// Collect runs Stream and gathers every record into a Bundle.
func Collect(rootPath string, options Options) (Bundle, error) {
	var bundle Bundle
	streamError := Stream(rootPath, options, func(record Record) error {
		bundle.Records = append(bundle.Records, record)
		return nil
	})
	if streamError != nil {
		return Bundle{}, streamError
	}
	return bundle, nil
}

// buildRecord reads one file and applies the binary skip, reveal patterns,
// decoding, and the error policy.
func (fileExtractor *extractor) buildRecord(node walk.Node) (Record, error) {
	data, readError := os.ReadFile(node.Path)
	if readError != nil {
		if fileExtractor.options.Errors == ErrorPolicyRaise {
			return Record{}, fmt.Errorf(errorReadingFileFormat, node.Path, readError)
		}
		fileExtractor.warn(node.Path, readError)
		return Record{
			Path:         node.Path,
			RelativePath: node.RelativePath,
			Skipped:      true,
			Reason:       fmt.Sprintf(contentOmittedFormat, unreadableReason),
		}, nil
	}
	if !fileExtractor.options.IncludeBinary && fileExtractor.isBinary(data) {
		mimeType := utils.DetectMimeType(data)
		if utils.ShouldRevealBinaryContent(node.RelativePath, fileExtractor.options.BinaryContentPatterns) {
			return Record{
				Path:            node.Path,
				RelativePath:    node.RelativePath,
				Content:         base64.StdEncoding.EncodeToString(data),
				MimeType:        mimeType,
				ContentEncoding: base64ContentEncoding,
			}, nil
		}
		return Record{
			Path:         node.Path,
			RelativePath: node.RelativePath,
			Skipped:      true,
			Reason:       binaryContentOmittedMarker,
			MimeType:     mimeType,
		}, nil
	}
	decodedContent, decodeError := fileExtractor.decoder.Decode(data)
	if decodeError != nil {
		if fileExtractor.options.Errors == ErrorPolicyRaise {
			return Record{}, &DecodeError{Path: node.Path, Encoding: fileExtractor.decoder.Name(), Err: decodeError}
		}
		fileExtractor.warn(node.Path, decodeError)
		return Record{
			Path:         node.Path,
			RelativePath: node.RelativePath,
			Skipped:      true,
			Reason:       fmt.Sprintf(contentOmittedFormat, fmt.Sprintf(undecodableReasonFormat, fileExtractor.decoder.Name())),
		}, nil
	}
	return Record{Path: node.Path, RelativePath: node.RelativePath, Content: decodedContent}, nil
}

func (fileExtractor *extractor) warn(path string, failure error) {
	if fileExtractor.options.OnError != nil {
		fileExtractor.options.OnError(path, failure)
	}
}
