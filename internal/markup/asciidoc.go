package markup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"
	"github.com/sirupsen/logrus"

	"github.com/starford/didact/internal/apperr"
)

// AsciiDocConverter renders AsciiDoc to HTML with libasciidoc and reads the
// result back as an element tree. Section roles survive as classes, so
// [role="time=10"] on a section yields <div class="sect1 time=10">.
type AsciiDocConverter struct{}

// NewAsciiDoc returns an AsciiDoc converter.
func NewAsciiDoc() *AsciiDocConverter {
	routeLogrus.Do(func() {
		logrus.SetLevel(logrus.WarnLevel)
		logrus.SetOutput(io.Discard)
		logrus.AddHook(slogHook{})
	})
	return &AsciiDocConverter{}
}

// routeLogrus sends libasciidoc's logrus output, warnings and above, to slog.
var routeLogrus sync.Once

type slogHook struct{}

func (slogHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (slogHook) Fire(e *logrus.Entry) error {
	level := slog.LevelWarn
	if e.Level <= logrus.ErrorLevel {
		level = slog.LevelError
	}
	attrs := []slog.Attr{slog.String("component", "asciidoc")}
	for k, v := range e.Data {
		attrs = append(attrs, slog.Any(k, v))
	}
	slog.Default().LogAttrs(context.Background(), level, e.Message, attrs...)
	return nil
}

func (c *AsciiDocConverter) Format() Format { return AsciiDoc }

// Convert parses src. Converter panics are reported as parse errors.
func (c *AsciiDocConverter) Convert(src []byte) (root *Element, err error) {
	if !utf8.Valid(src) {
		return nil, &apperr.ParseError{Format: string(AsciiDoc), Msg: "document is not valid UTF-8"}
	}
	defer func() {
		if r := recover(); r != nil {
			root = nil
			err = &apperr.ParseError{Format: string(AsciiDoc), Msg: fmt.Sprint(r)}
		}
	}()

	var out bytes.Buffer
	cfg := configuration.NewConfiguration(configuration.WithFilename("tutorial.adoc"))
	if _, err := libasciidoc.Convert(bytes.NewReader(src), &out, cfg); err != nil {
		return nil, &apperr.ParseError{Format: string(AsciiDoc), Msg: err.Error(), Err: err}
	}
	root, err = ParseHTML(out.Bytes())
	if err != nil {
		return nil, &apperr.ParseError{Format: string(AsciiDoc), Msg: err.Error(), Err: err}
	}
	return root, nil
}
