package position

import (
	"testing"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		pos      Position
		isValid  bool
	}{
		{
			name: "Valid position with filename",
			pos: Position{
				Filename: "test.py",
				Line:     10,
				Column:   5,
				Offset:   100,
			},
			isValid:  true,
			expected: "test.py:10:5",
		},
		{
			name: "Valid position without filename",
			pos: Position{
				Line:   1,
				Column: 1,
				Offset: 0,
			},
			isValid:  true,
			expected: "1:1",
		},
		{
			name: "Invalid position - zero line",
			pos: Position{
				Line:   0,
				Column: 1,
				Offset: 0,
			},
			isValid: false,
		},
		{
			name: "Invalid position - negative offset",
			pos: Position{
				Line:   1,
				Column: 1,
				Offset: -1,
			},
			isValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.IsValid(); got != tt.isValid {
				t.Errorf("Position.IsValid() = %v, want %v", got, tt.isValid)
			}

			if tt.isValid {
				if got := tt.pos.String(); got != tt.expected {
					t.Errorf("Position.String() = %v, want %v", got, tt.expected)
				}
			}
		})
	}
}

func TestNewSpanFromTreeSitterPoints(t *testing.T) {
	// tree-sitter points are zero-based; spans are 1-based.
	span := NewSpan("f.py", 0, 4, 4, 0, 9, 9)

	if span.Start.Line != 1 || span.Start.Column != 5 {
		t.Errorf("start = %v, want 1:5", span.Start)
	}

	if span.End.Line != 1 || span.End.Column != 10 {
		t.Errorf("end = %v, want 1:10", span.End)
	}

	if !span.IsValid() {
		t.Error("span should be valid")
	}

	if span.Length() != 5 {
		t.Errorf("Length() = %d, want 5", span.Length())
	}
}

func TestSpanUnion(t *testing.T) {
	a := NewSpan("f.py", 0, 0, 0, 0, 5, 5)
	b := NewSpan("f.py", 1, 0, 10, 1, 5, 15)

	u := a.Union(b)
	if u.Start.Offset != 0 || u.End.Offset != 15 {
		t.Errorf("Union = %v, want offsets 0..15", u)
	}

	// Unions across files keep the receiver.
	c := NewSpan("g.py", 0, 0, 0, 0, 5, 5)
	if got := a.Union(c); got != a {
		t.Errorf("cross-file Union = %v, want %v", got, a)
	}
}

func TestSourceFile(t *testing.T) {
	src := "def f(x):\n    return x\n"
	sf := NewSourceFile("f.py", src)

	if got := sf.GetLine(2); got != "    return x" {
		t.Errorf("GetLine(2) = %q", got)
	}

	span := NewSpan("f.py", 0, 4, 4, 0, 5, 5)
	if got := sf.GetSpanText(span); got != "f" {
		t.Errorf("GetSpanText = %q, want %q", got, "f")
	}

	if got := sf.GetLine(9); got != "" {
		t.Errorf("GetLine out of range = %q, want empty", got)
	}
}
