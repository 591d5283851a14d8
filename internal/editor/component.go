// Package editor implements the block email editor: an ordered list of
// typed components with selection, drop-position insertion and HTML
// conversion.
package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind identifies a component type
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindImage     Kind = "image"
	KindButton    Kind = "button"
	KindDivider   Kind = "divider"
	KindSpacer    Kind = "spacer"
	KindColumns   Kind = "columns"
)

// Kinds lists component types in palette order
var Kinds = []Kind{
	KindHeading,
	KindParagraph,
	KindImage,
	KindButton,
	KindDivider,
	KindSpacer,
	KindColumns,
}

var (
	// ErrInvalidField is returned for a property that the component type does not have
	ErrInvalidField = errors.New("invalid field for component type")
	// ErrUnknownKind is returned for an unrecognized component type
	ErrUnknownKind = errors.New("unknown component type")
)

// Props is the type-specific payload of a component. Each Kind has exactly
// one implementation.
type Props interface {
	Kind() Kind
	apply(fields map[string]any) error
}

// HeadingProps is a heading block; Level is h1 to h6
type HeadingProps struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// ParagraphProps holds paragraph markup, rendered without escaping
type ParagraphProps struct {
	Text string `json:"text"`
}

// ImageProps is an image block. Src is kept exactly as given.
type ImageProps struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// ButtonProps is a link styled as a button
type ButtonProps struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// DividerProps is a horizontal rule; it has no fields
type DividerProps struct{}

// SpacerProps is vertical whitespace of Height pixels
type SpacerProps struct {
	Height int `json:"height"`
}

// ColumnsProps is a row of empty table cells
type ColumnsProps struct {
	Columns int `json:"columns"`
}

func (HeadingProps) Kind() Kind   { return KindHeading }
func (ParagraphProps) Kind() Kind { return KindParagraph }
func (ImageProps) Kind() Kind     { return KindImage }
func (ButtonProps) Kind() Kind    { return KindButton }
func (DividerProps) Kind() Kind   { return KindDivider }
func (SpacerProps) Kind() Kind    { return KindSpacer }
func (ColumnsProps) Kind() Kind   { return KindColumns }

// DefaultProps returns the palette defaults for a new component of kind k
func DefaultProps(k Kind) (Props, error) {
	switch k {
	case KindHeading:
		return &HeadingProps{Level: "h1", Text: "New Heading"}, nil
	case KindParagraph:
		return &ParagraphProps{Text: "New paragraph text"}, nil
	case KindImage:
		return &ImageProps{}, nil
	case KindButton:
		return &ButtonProps{Text: "Click me", URL: "#"}, nil
	case KindDivider:
		return &DividerProps{}, nil
	case KindSpacer:
		return &SpacerProps{Height: 20}, nil
	case KindColumns:
		return &ColumnsProps{Columns: 2}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

// NewProps returns the palette defaults for k with fields applied on top
func NewProps(k Kind, fields map[string]any) (Props, error) {
	props, err := DefaultProps(k)
	if err != nil {
		return nil, err
	}
	if err := props.apply(fields); err != nil {
		return nil, err
	}
	return props, nil
}

func newProps(k Kind) (Props, error) {
	switch k {
	case KindHeading:
		return &HeadingProps{}, nil
	case KindParagraph:
		return &ParagraphProps{}, nil
	case KindImage:
		return &ImageProps{}, nil
	case KindButton:
		return &ButtonProps{}, nil
	case KindDivider:
		return &DividerProps{}, nil
	case KindSpacer:
		return &SpacerProps{}, nil
	case KindColumns:
		return &ColumnsProps{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

// cloneProps returns an independent copy of p
func cloneProps(p Props) Props {
	switch v := p.(type) {
	case *HeadingProps:
		cp := *v
		return &cp
	case *ParagraphProps:
		cp := *v
		return &cp
	case *ImageProps:
		cp := *v
		return &cp
	case *ButtonProps:
		cp := *v
		return &cp
	case *DividerProps:
		return &DividerProps{}
	case *SpacerProps:
		cp := *v
		return &cp
	case *ColumnsProps:
		cp := *v
		return &cp
	default:
		return p
	}
}

func (p *HeadingProps) apply(fields map[string]any) error {
	for name, value := range fields {
		switch name {
		case "level":
			level, err := stringField(name, value)
			if err != nil {
				return err
			}
			if !validLevel(level) {
				return fmt.Errorf("%w: level %q must be h1..h6", ErrInvalidField, level)
			}
			p.Level = level
		case "text":
			text, err := stringField(name, value)
			if err != nil {
				return err
			}
			p.Text = text
		default:
			return foreignField(KindHeading, name)
		}
	}
	return nil
}

func (p *ParagraphProps) apply(fields map[string]any) error {
	for name, value := range fields {
		if name != "text" {
			return foreignField(KindParagraph, name)
		}
		text, err := stringField(name, value)
		if err != nil {
			return err
		}
		p.Text = text
	}
	return nil
}

func (p *ImageProps) apply(fields map[string]any) error {
	for name, value := range fields {
		s, err := stringField(name, value)
		switch name {
		case "src":
			p.Src = s
		case "alt":
			p.Alt = s
		default:
			return foreignField(KindImage, name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *ButtonProps) apply(fields map[string]any) error {
	for name, value := range fields {
		s, err := stringField(name, value)
		switch name {
		case "text":
			p.Text = s
		case "url":
			p.URL = s
		default:
			return foreignField(KindButton, name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *DividerProps) apply(fields map[string]any) error {
	for name := range fields {
		return foreignField(KindDivider, name)
	}
	return nil
}

func (p *SpacerProps) apply(fields map[string]any) error {
	for name, value := range fields {
		if name != "height" {
			return foreignField(KindSpacer, name)
		}
		h, err := intField(name, value)
		if err != nil {
			return err
		}
		if h < 0 {
			return fmt.Errorf("%w: height must not be negative", ErrInvalidField)
		}
		p.Height = h
	}
	return nil
}

func (p *ColumnsProps) apply(fields map[string]any) error {
	for name, value := range fields {
		if name != "columns" {
			return foreignField(KindColumns, name)
		}
		n, err := intField(name, value)
		if err != nil {
			return err
		}
		if n < 1 {
			return fmt.Errorf("%w: columns must be at least 1", ErrInvalidField)
		}
		p.Columns = n
	}
	return nil
}

func validLevel(level string) bool {
	return len(level) == 2 && level[0] == 'h' && level[1] >= '1' && level[1] <= '6'
}

func foreignField(k Kind, name string) error {
	return fmt.Errorf("%w: %s has no field %q", ErrInvalidField, k, name)
}

func stringField(name string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string", ErrInvalidField, name)
	}
	return s, nil
}

// intField accepts Go integers and whole JSON numbers
func intField(name string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %q must be an integer", ErrInvalidField, name)
}

// Component is one block in the editor canvas
type Component struct {
	ID    string
	Props Props
}

// Type returns the component kind
func (c Component) Type() Kind {
	if c.Props == nil {
		return ""
	}
	return c.Props.Kind()
}

type componentJSON struct {
	ID           string          `json:"id"`
	Type         Kind            `json:"type"`
	DefaultProps json.RawMessage `json:"defaultProps"`
}

// MarshalJSON encodes the component as {"id","type","defaultProps"}
func (c Component) MarshalJSON() ([]byte, error) {
	if c.Props == nil {
		return nil, fmt.Errorf("component %s has no props", c.ID)
	}
	props, err := json.Marshal(c.Props)
	if err != nil {
		return nil, err
	}
	return json.Marshal(componentJSON{ID: c.ID, Type: c.Props.Kind(), DefaultProps: props})
}

// UnmarshalJSON decodes a component, rejecting props foreign to its type
func (c *Component) UnmarshalJSON(data []byte) error {
	var raw componentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	props, err := decodeProps(raw.Type, raw.DefaultProps)
	if err != nil {
		return err
	}

	c.ID = raw.ID
	c.Props = props
	return nil
}

func decodeProps(k Kind, data json.RawMessage) (Props, error) {
	props, err := newProps(k)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return props, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(props); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			return nil, fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
		return nil, fmt.Errorf("failed to decode %s props: %w", k, err)
	}
	if h, ok := props.(*HeadingProps); ok && h.Level != "" && !validLevel(h.Level) {
		return nil, fmt.Errorf("%w: level %q must be h1..h6", ErrInvalidField, h.Level)
	}
	return props, nil
}
