package dot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/pprof/third_party/svgpan"
	"github.com/klothoplatform/vpcstack/pkg/logging"
	"go.uber.org/zap"
)

// SVG pan support for dot output, following https://github.com/google/pprof/blob/main/internal/driver/svg.go

var (
	viewBox  = regexp.MustCompile(`<svg\s*width="[^"]+"\s*height="[^"]+"\s*viewBox="[^"]+"`)
	graphID  = regexp.MustCompile(`<g id="graph\d"`)
	svgClose = regexp.MustCompile(`</svg>`)
)

// SvgPan wraps the graph of a dot SVG in a viewport driven by the svgpan script so it can be panned and
// zoomed in a browser.
func SvgPan(svg string) string {
	// dot sometimes leaves ampersands unescaped
	svg = strings.ReplaceAll(svg, "&;", "&amp;;")

	if loc := viewBox.FindStringIndex(svg); loc != nil {
		svg = svg[:loc[0]] +
			`<svg width="100%" height="100%"` +
			svg[loc[1]:]
	}

	if loc := graphID.FindStringIndex(svg); loc != nil {
		svg = svg[:loc[0]] +
			`<script type="text/ecmascript"><![CDATA[` + svgpan.JSSource + `]]></script>` +
			`<g id="viewport" transform="scale(0.5,0.5) translate(0,0)">` +
			svg[loc[0]:]
	}

	if loc := svgClose.FindStringIndex(svg); loc != nil {
		svg = svg[:loc[0]] +
			`</g>` +
			svg[loc[0]:]
	}

	return svg
}

// Execute runs graphviz `dot` to render `input` as SVG.
func Execute(ctx context.Context, input io.Reader, output io.Writer) error {
	errBuff := new(bytes.Buffer)
	cmd := logging.Command(ctx, logging.CommandLogger{
		RootLogger:  logging.GetLogger(ctx).Named("dot"),
		StdoutLevel: zap.DebugLevel,
		StderrLevel: zap.WarnLevel,
	}, "dot", "-Tsvg")
	cmd.Stdin = input
	cmd.Stdout = output
	cmd.Stderr = io.MultiWriter(cmd.Stderr, errBuff)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("could not run 'dot': %w: %s", err, errBuff.String())
	}
	return nil
}

func ExecPan(ctx context.Context, input io.Reader) (string, error) {
	out := new(bytes.Buffer)
	if err := Execute(ctx, input, out); err != nil {
		return "", err
	}
	logging.GetLogger(ctx).Named("dot").Sugar().Debugf("dot output %d bytes", out.Len())
	return SvgPan(out.String()), nil
}
