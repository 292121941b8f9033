package compiler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/microsoft/typescript-go/shim/ast"
	shimscanner "github.com/microsoft/typescript-go/shim/scanner"
	"golang.org/x/term"
)

// Category is the severity of a toolchain diagnostic. Values follow the
// toolchain's own numbering.
type Category int

const (
	CategoryWarning    Category = 0
	CategoryError      Category = 1
	CategorySuggestion Category = 2
	CategoryMessage    Category = 3
)

func (c Category) String() string {
	switch c {
	case CategoryError:
		return "error"
	case CategoryWarning:
		return "warning"
	case CategorySuggestion:
		return "suggestion"
	case CategoryMessage:
		return "message"
	}
	return "unknown"
}

func categoryOf(d *ast.Diagnostic) Category {
	return Category(ast.Diagnostic_Category(d))
}

const (
	colorReset  = "\u001b[0m"
	colorRed    = "\u001b[91m"
	colorYellow = "\u001b[93m"
	colorBlue   = "\u001b[94m"
	colorCyan   = "\u001b[96m"
	colorGrey   = "\u001b[90m"
	colorGutter = "\u001b[7m"
)

func (c Category) color() string {
	switch c {
	case CategoryError:
		return colorRed
	case CategoryWarning:
		return colorYellow
	case CategorySuggestion:
		return colorGrey
	case CategoryMessage:
		return colorBlue
	}
	return ""
}

// Reporter writes one diagnostic.
type Reporter func(d *ast.Diagnostic)

// PrettyOutput reports whether diagnostics should be colored and carry code
// snippets. NO_COLOR wins over FORCE_COLOR, which wins over the terminal check.
func PrettyOutput(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}

// NewReporter returns a Reporter writing to w. Paths are shown relative to
// cwd. Plain output is one line per diagnostic:
//
//	src/a.ts(3,7): error TS2322: message
func NewReporter(w io.Writer, cwd string, pretty bool) Reporter {
	if pretty {
		return func(d *ast.Diagnostic) {
			writePretty(w, d, cwd)
			fmt.Fprint(w, "\n")
		}
	}
	return func(d *ast.Diagnostic) {
		writePlain(w, d, cwd)
	}
}

func writePlain(w io.Writer, d *ast.Diagnostic, cwd string) {
	if d.File() != nil {
		line, char := shimscanner.GetECMALineAndCharacterOfPosition(d.File(), d.Pos())
		fmt.Fprintf(w, "%s(%d,%d): ", relativePath(d.File().FileName(), cwd), line+1, char+1)
	}
	fmt.Fprintf(w, "%s TS%d: %s\n", categoryOf(d), d.Code(), d.String())
}

func writePretty(w io.Writer, d *ast.Diagnostic, cwd string) {
	cat := categoryOf(d)
	if d.File() != nil {
		line, char := shimscanner.GetECMALineAndCharacterOfPosition(d.File(), d.Pos())
		fmt.Fprintf(w, "%s%s%s:%s%d%s:%s%d%s - ",
			colorCyan, relativePath(d.File().FileName(), cwd), colorReset,
			colorYellow, line+1, colorReset,
			colorYellow, char+1, colorReset)
	}
	fmt.Fprintf(w, "%s%s%s %sTS%d:%s %s",
		cat.color(), cat, colorReset,
		colorGrey, d.Code(), colorReset,
		d.String())

	if d.File() != nil && d.Len() > 0 {
		fmt.Fprint(w, "\n")
		writeSnippet(w, d.File(), d.Pos(), d.Len(), cat.color())
		fmt.Fprint(w, "\n")
	}
}

// writeSnippet prints the lines covered by [start, start+length) with a
// line-number gutter and a row of squiggles under the span. Spans longer
// than five lines are elided in the middle.
func writeSnippet(w io.Writer, file *ast.SourceFile, start int, length int, squiggle string) {
	firstLine, firstChar := shimscanner.GetECMALineAndCharacterOfPosition(file, start)
	lastLine, lastChar := shimscanner.GetECMALineAndCharacterOfPosition(file, start+length)

	text := file.Text()
	lastLineOfFile := shimscanner.GetECMALineOfPosition(file, len(text))

	elide := lastLine-firstLine >= 4
	gutter := len(strconv.Itoa(lastLine + 1))
	if elide && gutter < 3 {
		gutter = 3
	}

	for i := firstLine; i <= lastLine; i++ {
		if elide && firstLine+1 < i && i < lastLine-1 {
			fmt.Fprintf(w, "%s%*s%s\n", colorGutter, gutter, "...", colorReset)
			i = lastLine - 1
		}

		lineStart := shimscanner.GetECMAPositionOfLineAndCharacter(file, i, 0)
		lineEnd := len(text)
		if i < lastLineOfFile {
			lineEnd = shimscanner.GetECMAPositionOfLineAndCharacter(file, i+1, 0)
		}
		content := strings.TrimRightFunc(text[lineStart:lineEnd], unicode.IsSpace)
		content = strings.ReplaceAll(content, "\t", " ")

		fmt.Fprintf(w, "%s%*d%s %s\n", colorGutter, gutter, i+1, colorReset, content)
		fmt.Fprintf(w, "%s%*s%s %s", colorGutter, gutter, "", colorReset, squiggle)
		switch i {
		case firstLine:
			end := lastChar
			if i != lastLine {
				end = len(content)
			}
			fmt.Fprint(w, strings.Repeat(" ", firstChar))
			fmt.Fprint(w, strings.Repeat("~", max(end-firstChar, 1)))
		case lastLine:
			fmt.Fprint(w, strings.Repeat("~", lastChar))
		default:
			fmt.Fprint(w, strings.Repeat("~", len(content)))
		}
		fmt.Fprint(w, colorReset)
	}
}

// WriteSummary writes the closing "Found N errors" line. Only error
// diagnostics are counted; nothing is written when there are none.
func WriteSummary(w io.Writer, diags []*ast.Diagnostic, cwd string) {
	var first *ast.Diagnostic
	files := make(map[string]struct{})
	count := 0
	for _, d := range diags {
		if categoryOf(d) != CategoryError {
			continue
		}
		count++
		if first == nil {
			first = d
		}
		if d.File() != nil {
			files[d.File().FileName()] = struct{}{}
		}
	}
	if count == 0 {
		return
	}

	fmt.Fprint(w, "\n")
	switch {
	case len(files) > 1:
		fmt.Fprintf(w, "Found %d errors in %d files.\n", count, len(files))
	case first.File() == nil:
		if count == 1 {
			fmt.Fprintln(w, "Found 1 error.")
		} else {
			fmt.Fprintf(w, "Found %d errors.\n", count)
		}
	default:
		line := shimscanner.GetECMALineOfPosition(first.File(), first.Pos())
		where := fmt.Sprintf("%s%s:%d%s", relativePath(first.File().FileName(), cwd), colorGrey, line+1, colorReset)
		if count == 1 {
			fmt.Fprintf(w, "Found 1 error in %s\n", where)
		} else {
			fmt.Fprintf(w, "Found %d errors in the same file, starting at: %s\n", count, where)
		}
	}
	fmt.Fprint(w, "\n")
}

// CountErrors returns the number of error diagnostics.
func CountErrors(diags []*ast.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if categoryOf(d) == CategoryError {
			n++
		}
	}
	return n
}

// FilesWithErrors returns the set of files carrying at least one error
// diagnostic.
func FilesWithErrors(diags []*ast.Diagnostic) map[string]bool {
	files := make(map[string]bool)
	for _, d := range diags {
		if d.File() != nil && categoryOf(d) == CategoryError {
			files[d.File().FileName()] = true
		}
	}
	return files
}

func relativePath(absPath string, cwd string) string {
	if cwd == "" {
		return absPath
	}
	rel, err := filepath.Rel(cwd, absPath)
	if err != nil {
		return absPath
	}
	return rel
}
