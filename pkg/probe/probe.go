// Package probe identifies an image's type and reads its decoded
// dimensions by shelling out to `file` and `pnmfile` (spec §4.G). Grounded
// on pkg/images.Decode's pattern of trusting an external tool's stdout over
// parsing pixels in-process (no in-process image decoding, per the spec).
package probe

import (
	"bytes"
	"io"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/blobcache/imgcache/pkg/imagekey"
	"github.com/blobcache/imgcache/pkg/ixerr"
)

var typePatterns = []struct {
	re  *regexp.Regexp
	typ imagekey.ImageType
}{
	{regexp.MustCompile(`Netpbm P[BGPP]M "rawbits" image data`), imagekey.PPM},
	{regexp.MustCompile(`JPEG image data`), imagekey.JPEG},
	{regexp.MustCompile(`PNG image data`), imagekey.PNG},
	{regexp.MustCompile(`GIF image data`), imagekey.GIF},
}

// Type runs `file -b` on the blob at path and classifies it by matching
// stdout against the spec's pattern table; first match wins.
func Type(path string) (imagekey.ImageType, error) {
	out, err := exec.Command("file", "-b", path).Output()
	if err != nil {
		return 0, ixerr.InFunction("probe.Type", classifyExecErr(err, "file -b "+path))
	}
	for _, p := range typePatterns {
		if p.re.Match(out) {
			return p.typ, nil
		}
	}
	return 0, ixerr.InFunction("probe.Type", ixerr.Caller("not an image: %s", path))
}

func classifyExecErr(err error, repr string) error {
	if ee, ok := err.(*exec.ExitError); ok {
		return ixerr.Command(repr, ee.String())
	}
	return ixerr.IO(err, "running %s", repr)
}

func decoderProg(known imagekey.ImageType) string {
	switch known {
	case imagekey.JPEG:
		return "jpegtopnm"
	case imagekey.GIF:
		return "giftopnm"
	case imagekey.PNG:
		return "pngtopnm"
	default:
		return "" // already PPM
	}
}

// pnmfileLine matches pnmfile's single-line description of a PNM image. The
// maxval group is optional; absent means maxval 1 (a bitmap).
var pnmfileLine = regexp.MustCompile(`^stdin:\tP[PGB]M raw, (\d+) by (\d+)(?:[ ]+maxval (\d+))?\s*$`)

// PNM decodes bytes of the given known type by running
// `decoder(known) | pnmfile` and parsing pnmfile's stdout into width,
// height, and maxval. The two stages are connected by a streaming pipe
// (rather than fully buffered end to end) because pnmfile deliberately
// closes its stdin as soon as it has read the header: the upstream decoder
// then fails to write its remaining output and exits non-zero with
// "Output file write error --- out of disk space?" on stderr. That failure
// is benign and must not fail the probe; only pnmfile's own exit status and
// stdout matter (spec §4.G).
func PNM(input []byte, known imagekey.ImageType) (width, height, maxVal int, err error) {
	prog := decoderProg(known)
	var out []byte
	if prog == "" {
		out, err = runPnmfile(input)
	} else {
		out, err = runDecoderThenPnmfile(prog, input)
	}
	if err != nil {
		return 0, 0, 0, ixerr.InFunction("probe.PNM", err)
	}

	m := pnmfileLine.FindSubmatch(out)
	if m == nil {
		return 0, 0, 0, ixerr.InFunction("probe.PNM", ixerr.Caller("unparseable pnmfile output: %q", out))
	}
	width, werr := strconv.Atoi(string(m[1]))
	height, herr := strconv.Atoi(string(m[2]))
	if werr != nil || herr != nil {
		return 0, 0, 0, ixerr.InFunction("probe.PNM", ixerr.Caller("bad dimensions in pnmfile output: %q", out))
	}
	maxVal = 1
	if len(m[3]) > 0 {
		v, err := strconv.Atoi(string(m[3]))
		if err != nil {
			return 0, 0, 0, ixerr.InFunction("probe.PNM", ixerr.Caller("bad maxval in pnmfile output: %q", out))
		}
		maxVal = v
	}
	return width, height, maxVal, nil
}

func runPnmfile(input []byte) ([]byte, error) {
	cmd := exec.Command("pnmfile")
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		repr := "pnmfile"
		exitRepr := err.Error()
		if ee, ok := err.(*exec.ExitError); ok {
			exitRepr = ee.String()
		}
		return nil, ixerr.WithStderr(stderr.Bytes(), ixerr.Command(repr, exitRepr))
	}
	return stdout.Bytes(), nil
}

// runDecoderThenPnmfile connects decoderProg's stdout to pnmfile's stdin
// through a real pipe so pnmfile's early stdin close can race the decoder,
// matching the spec's documented benign failure mode.
func runDecoderThenPnmfile(decoder string, input []byte) ([]byte, error) {
	decoderCmd := exec.Command(decoder)
	decoderCmd.Stdin = bytes.NewReader(input)
	pr, pw := io.Pipe()
	decoderCmd.Stdout = pw
	var decoderStderr bytes.Buffer
	decoderCmd.Stderr = &decoderStderr

	pnmfileCmd := exec.Command("pnmfile")
	pnmfileCmd.Stdin = pr
	var pnmfileStdout, pnmfileStderr bytes.Buffer
	pnmfileCmd.Stdout = &pnmfileStdout
	pnmfileCmd.Stderr = &pnmfileStderr

	if err := decoderCmd.Start(); err != nil {
		return nil, ixerr.IO(err, "starting %s", decoder)
	}
	if err := pnmfileCmd.Start(); err != nil {
		return nil, ixerr.IO(err, "starting pnmfile")
	}

	decoderErr := make(chan error, 1)
	go func() {
		err := decoderCmd.Wait()
		pw.Close()
		decoderErr <- err
	}()

	pnmfileErr := pnmfileCmd.Wait()
	// pnmfile reads no more: closing the read end makes the decoder's
	// remaining writes fail instead of blocking forever.
	pr.Close()
	<-decoderErr

	if pnmfileErr != nil {
		repr := decoder + " " + input2repr(input) + " | pnmfile"
		exitRepr := pnmfileErr.Error()
		if ee, ok := pnmfileErr.(*exec.ExitError); ok {
			exitRepr = ee.String()
		}
		return nil, ixerr.WithStderr(pnmfileStderr.Bytes(), ixerr.Command(repr, exitRepr))
	}
	// pnmfile succeeded: any decoder failure (typically the benign
	// write-error from pnmfile's early stdin close) is ignored.
	return pnmfileStdout.Bytes(), nil
}

func input2repr(input []byte) string {
	if len(input) > 16 {
		input = input[:16]
	}
	return "<" + strconv.Itoa(len(input)) + " bytes>"
}
