package derive

import (
	"fmt"
	"strconv"

	"github.com/blobcache/imgcache/pkg/config"
	"github.com/blobcache/imgcache/pkg/imagekey"
	"github.com/blobcache/imgcache/pkg/imgmath"
	"github.com/blobcache/imgcache/pkg/ixerr"
	"github.com/blobcache/imgcache/pkg/pipeline"
	"github.com/blobcache/imgcache/pkg/probe"
)

// probePNM is probe.PNM, indirected through a package variable so tests can
// stub it without spawning pnmfile/decoder subprocesses.
var probePNM = probe.PNM

// runPipeline is pipeline.Pipeline.Run, indirected the same way as
// probePNM so tests can exercise scaleDecoderProg/cropPipeline's stage
// construction without requiring jpegtopnm/pnmscale/cjpeg/pnmcut/jpegtran
// to be installed.
var runPipeline = func(p pipeline.Pipeline, input []byte) ([]byte, error) {
	return p.Run(input)
}

// build is the structurally recursive evaluator of spec §4.E.
func (e *Engine) build(key imagekey.Key) (imagekey.ImageFile, error) {
	switch k := key.(type) {
	case imagekey.Original:
		return k.Image, nil
	case imagekey.Upright:
		return e.buildUpright(k)
	case imagekey.Scaled:
		return e.buildScaled(k)
	case imagekey.Cropped:
		return e.buildCropped(k)
	default:
		return imagekey.ImageFile{}, ixerr.Caller("derive.build: unknown ImageKey variant %T", key)
	}
}

func (e *Engine) buildUpright(k imagekey.Upright) (imagekey.ImageFile, error) {
	inner, err := e.Get(k.Inner)
	if err != nil {
		return imagekey.ImageFile{}, err
	}
	b, err := e.fc.Load(inner.File)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.buildUpright", err)
	}
	out, changed, err := e.norm.Normalize(b)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.buildUpright", err)
	}
	if !changed {
		// spec §7: "EXIF normalizer says no change" is success with the
		// original image; no new blob is written.
		return inner, nil
	}
	img, err := e.ingestAndProbe(out, inner.ImageType)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.buildUpright", err)
	}
	return img, nil
}

func (e *Engine) buildScaled(k imagekey.Scaled) (imagekey.ImageFile, error) {
	inner, err := e.Get(k.Inner)
	if err != nil {
		return imagekey.ImageFile{}, err
	}
	scale := imgmath.ScaleFromDPI(k.DPI, k.Size, inner.Width, inner.Height)
	if imgmath.IsOne(scale) {
		// spec §7, §8 property 4, scenario C: a no-op scale returns the
		// inner image unchanged; no new blob is written.
		return inner, nil
	}

	innerBytes, err := e.fc.Load(inner.File)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.buildScaled", err)
	}

	decoder := scaleDecoderProg(e.cfg, inner.ImageType)
	scaleF, _ := scale.Float64()
	stages := []pipeline.Command{
		{Prog: decoder},
		{Prog: e.cfg.PnmscalePath, Args: []string{fmt.Sprintf("%.6f", scaleF)}},
		{Prog: e.cfg.CjpegPath},
	}
	out, err := runPipeline(pipeline.New(stages...), innerBytes)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.buildScaled", err)
	}
	img, err := e.ingestAndProbe(out, imagekey.JPEG)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.buildScaled", err)
	}
	return img, nil
}

// scaleDecoderProg picks the first stage of the Scaled pipeline
// `decoder | pnmscale <scale:6f> | cjpeg` (spec §4.E): unlike probe's
// decoderProg, a PPM input still gets an explicit stage ("cat"), since this
// pipeline always has exactly three stages.
func scaleDecoderProg(cfg config.Config, t imagekey.ImageType) string {
	switch t {
	case imagekey.JPEG:
		return cfg.JpegtopnmPath
	case imagekey.GIF:
		return cfg.GiftopnmPath
	case imagekey.PNG:
		return cfg.PngtopnmPath
	default: // PPM
		return "cat"
	}
}

func (e *Engine) buildCropped(k imagekey.Cropped) (imagekey.ImageFile, error) {
	inner, err := e.Get(k.Inner)
	if err != nil {
		return imagekey.ImageFile{}, err
	}
	if k.Crop.IsIdentity() {
		// spec §7, §8 property 5, scenario D: identity crop returns the
		// inner image unchanged; no subprocess is spawned.
		return inner, nil
	}

	stages, err := e.cropPipeline(k.Crop, inner)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.buildCropped", err)
	}
	if len(stages) == 0 {
		return inner, nil
	}

	innerBytes, err := e.fc.Load(inner.File)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.buildCropped", err)
	}
	out, err := runPipeline(pipeline.New(stages...), innerBytes)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.buildCropped", err)
	}
	img, err := e.ingestAndProbe(out, imagekey.JPEG)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.buildCropped", err)
	}
	return img, nil
}

// effectStage is one of the crop's two possible non-conversion stages: the
// pnmcut and jpegtran -rotate steps of spec §4.E.
type effectStage struct {
	in, out imagekey.ImageType
	cmd     pipeline.Command
}

// cropPipeline builds the full stage list for a Cropped derivation: the
// cut/rotate effect stages named by the spec, with conversion stages
// inserted wherever two consecutive stages' types disagree (spec §4.E's
// tie-break rule), and a trailing conversion to the target type (JPEG) if
// the chain doesn't already end there.
func (e *Engine) cropPipeline(crop imgmath.ImageCrop, inner imagekey.ImageFile) ([]pipeline.Command, error) {
	var effects []effectStage
	if crop.HasCut() {
		left, right, top, bottom, err := imgmath.CutBounds(crop, inner.Width, inner.Height)
		if err != nil {
			return nil, err
		}
		effects = append(effects, effectStage{
			in: imagekey.PPM, out: imagekey.PPM,
			cmd: pipeline.Command{
				Prog: e.cfg.PnmcutPath,
				Args: []string{
					"-left", strconv.Itoa(left), "-right", strconv.Itoa(right),
					"-top", strconv.Itoa(top), "-bottom", strconv.Itoa(bottom),
				},
			},
		})
	}
	if crop.HasRotate() {
		effects = append(effects, effectStage{
			in: imagekey.JPEG, out: imagekey.JPEG,
			cmd: pipeline.Command{Prog: e.cfg.JpegtranPath, Args: []string{"-rotate", strconv.Itoa(crop.Rotation)}},
		})
	}

	const target = imagekey.JPEG
	var stages []pipeline.Command
	cur := inner.ImageType
	for _, eff := range effects {
		if cur != eff.in {
			conv, err := e.convFromTo(cur, eff.in)
			if err != nil {
				return nil, err
			}
			stages = append(stages, conv...)
			cur = eff.in
		}
		stages = append(stages, eff.cmd)
		cur = eff.out
	}
	if cur != target {
		conv, err := e.convFromTo(cur, target)
		if err != nil {
			return nil, err
		}
		stages = append(stages, conv...)
		cur = target
	}
	return stages, nil
}

// convFromTo implements spec §4.E's conversion table: PPM is the hub every
// other format converts through. X→X is the empty chain.
func (e *Engine) convFromTo(from, to imagekey.ImageType) ([]pipeline.Command, error) {
	if from == to {
		return nil, nil
	}
	if from != imagekey.PPM && to != imagekey.PPM {
		toPPM, err := e.convFromTo(from, imagekey.PPM)
		if err != nil {
			return nil, err
		}
		fromPPM, err := e.convFromTo(imagekey.PPM, to)
		if err != nil {
			return nil, err
		}
		return append(toPPM, fromPPM...), nil
	}
	switch {
	case from == imagekey.JPEG && to == imagekey.PPM:
		return []pipeline.Command{{Prog: e.cfg.JpegtopnmPath}}, nil
	case from == imagekey.GIF && to == imagekey.PPM:
		return []pipeline.Command{{Prog: e.cfg.GiftopnmPath}}, nil
	case from == imagekey.PNG && to == imagekey.PPM:
		return []pipeline.Command{{Prog: e.cfg.PngtopnmPath}}, nil
	case from == imagekey.PPM && to == imagekey.JPEG:
		return []pipeline.Command{{Prog: e.cfg.CjpegPath}}, nil
	case from == imagekey.PPM && to == imagekey.GIF:
		return []pipeline.Command{{Prog: e.cfg.PpmtogifPath}}, nil
	case from == imagekey.PPM && to == imagekey.PNG:
		return []pipeline.Command{{Prog: e.cfg.PnmtopngPath}}, nil
	default:
		return nil, ixerr.Caller("no conversion path from %v to %v", from, to)
	}
}

