package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/carstage/carstage"
	"github.com/carstage/carstage/internal/utils"
	"github.com/carstage/carstage/pkg/advisor"
	"github.com/carstage/carstage/pkg/blendapi"
	"github.com/carstage/carstage/pkg/ollama"
	"github.com/carstage/carstage/pkg/processing"
	"github.com/carstage/carstage/pkg/types"
)

func main() {
	var bg, fg, out string
	var clickX, clickY float64
	var boxW, boxH float64
	var scale float64
	var ext string
	var quality int
	var lossless bool
	var overlay bool

	var extract bool
	var blend bool
	var blendURL string
	var blendModel string
	var blendPrompt string

	var suggest bool
	var ollamaURL string
	var visionModel string
	var sendSize int
	var sendQ int

	flag.StringVar(&bg, "bg", "", "background image path or URL (jpg/png/webp)")
	flag.StringVar(&fg, "fg", "", "foreground cutout path or URL (jpg/png/webp)")
	flag.StringVar(&out, "out", "staged.png", "output file path")

	flag.Float64Var(&clickX, "x", -1, "click X in viewport coordinates")
	flag.Float64Var(&clickY, "y", -1, "click Y in viewport coordinates")
	flag.Float64Var(&boxW, "boxw", 0, "viewport width the click was made in (defaults to background width)")
	flag.Float64Var(&boxH, "boxh", 0, "viewport height the click was made in (defaults to background height)")
	flag.Float64Var(&scale, "scale", 0, "foreground scale override (0.1..3.0, 0=auto)")

	flag.StringVar(&ext, "ext", "", "output format: png|jpg|webp (default from -out extension)")
	flag.IntVar(&quality, "quality", 90, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP lossless mode")
	flag.BoolVar(&overlay, "overlay", false, "also write a placement overlay next to the output")

	flag.BoolVar(&extract, "extract", false, "remove the foreground's background via the blend service before placing")
	flag.BoolVar(&blend, "blend", false, "send the composite to the blend service for relighting")
	flag.StringVar(&blendURL, "blendurl", "http://localhost:8188", "blend service URL")
	flag.StringVar(&blendModel, "blendmodel", "", "blend service model name")
	flag.StringVar(&blendPrompt, "blendprompt", "", "blend prompt (empty=service default)")

	flag.BoolVar(&suggest, "suggest", false, "ask the vision model for an anchor instead of -x/-y")
	flag.StringVar(&ollamaURL, "ollamaurl", "http://localhost:11434", "Ollama server URL")
	flag.StringVar(&visionModel, "model", "openbmb/minicpm-v4.5", "vision model name")
	flag.IntVar(&sendSize, "sendsize", 1536, "max long side sent to the vision model (px), 0=original")
	flag.IntVar(&sendQ, "sendq", 85, "JPEG quality for the image sent to the vision model (1-100)")

	flag.Parse()
	if bg == "" || fg == "" {
		log.Fatalf("usage: %s -bg scene.jpg -fg cutout.png -x 200 -y 300 [-boxw 400 -boxh 400] [-scale 1.2] [-blend] [-suggest] [-out staged.png]", filepath.Base(os.Args[0]))
	}
	if !suggest && (clickX < 0 || clickY < 0) {
		log.Fatal("either -x/-y or -suggest is required")
	}
	for _, src := range []string{bg, fg} {
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") && !utils.IsImageFile(src) {
			log.Fatalf("unsupported input file: %s", src)
		}
	}

	processor := processing.NewProcessor()
	stager := carstage.New()

	bgImg, err := processor.LoadImageSmart(bg)
	if err != nil {
		log.Fatalf("failed to load background: %v", err)
	}
	fgImg, err := processor.LoadImageSmart(fg)
	if err != nil {
		log.Fatalf("failed to load foreground: %v", err)
	}

	ctx := context.Background()

	// Cut the subject out of its source photo first if requested.
	if extract {
		blendClient, err := blendapi.NewClient(blendURL)
		if err != nil {
			log.Fatalf("failed to create blend client: %v", err)
		}
		fgB64, err := processor.EncodeForService(fgImg, "png", 0, 100)
		if err != nil {
			log.Fatal(err)
		}
		result, err := blendClient.RemoveBackground(ctx, fgB64)
		if err != nil {
			log.Fatalf("background removal failed: %v", err)
		}
		fgImg, err = processor.DecodeBytes(result.Data)
		if err != nil {
			log.Fatalf("failed to decode extracted foreground: %v", err)
		}
		log.Printf("extracted foreground: %dx%d", fgImg.Bounds().Dx(), fgImg.Bounds().Dy())
	}

	stager.SetBackground(bgImg)
	stager.SetForeground(fgImg)

	bounds := bgImg.Bounds()
	if boxW <= 0 {
		boxW = float64(bounds.Dx())
	}
	if boxH <= 0 {
		boxH = float64(bounds.Dy())
	}
	stager.SetViewport(boxW, boxH)

	// Anchor from the vision model or from the click.
	if suggest {
		ollamaClient, err := ollama.NewClient(ollamaURL)
		if err != nil {
			log.Fatalf("failed to create Ollama client: %v", err)
		}
		adv := advisor.New(ollamaClient)

		bgB64, err := processor.EncodeForService(bgImg, "jpg", sendSize, sendQ)
		if err != nil {
			log.Fatal(err)
		}
		suggestion, err := adv.SuggestAnchor(ctx, visionModel, bgB64)
		if err != nil {
			log.Fatalf("placement suggestion failed: %v", err)
		}
		log.Printf("suggestion: %q conf=%.2f at (%.3f, %.3f): %s",
			suggestion.Label, suggestion.Confidence, suggestion.Cx, suggestion.Cy, suggestion.Reason)

		clickX = suggestion.Cx * boxW
		clickY = suggestion.Cy * boxH
	}

	native, hint, err := stager.Place(types.Point{X: clickX, Y: clickY})
	if err != nil {
		log.Fatalf("placement failed: %v", err)
	}
	log.Printf("anchor: viewport (%.1f, %.1f) -> native (%.1f, %.1f)", clickX, clickY, native.X, native.Y)
	log.Printf("depth hint: scale=%.3f rotation=%.1f°", hint.Scale, hint.RotationDegrees)

	if scale > 0 {
		stager.SetScale(scale)
	}
	log.Printf("foreground scale: %.3f", stager.Scale())

	result, err := stager.Composite(ctx)
	if err != nil {
		log.Fatalf("composite failed: %v", err)
	}

	output := []byte(nil)
	mime := ""
	if blend {
		blendClient, err := blendapi.NewClient(blendURL)
		if err != nil {
			log.Fatalf("failed to create blend client: %v", err)
		}
		compositeB64, err := processor.EncodeForService(result, "png", 0, 100)
		if err != nil {
			log.Fatal(err)
		}
		blended, err := blendClient.Blend(ctx, types.BlendRequest{
			Model:    blendModel,
			Prompt:   blendPrompt,
			ImageB64: compositeB64,
		})
		if err != nil {
			log.Fatalf("blend failed: %v", err)
		}
		output = blended.Data
		mime = blended.MimeType
	}

	if output != nil {
		if err := os.WriteFile(out, output, 0o644); err != nil {
			log.Fatalf("failed to write %s: %v", out, err)
		}
		log.Printf("wrote %s (%s, %d bytes)", out, mime, len(output))
	} else {
		if ext == "" {
			ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
			if ext == "" {
				ext = "png"
			}
		}
		if err := processor.SaveImage(result, out, ext, quality, lossless); err != nil {
			log.Fatalf("failed to save %s: %v", out, err)
		}
		log.Printf("wrote %s (%dx%d)", out, result.Bounds().Dx(), result.Bounds().Dy())
	}

	if overlay {
		fgW := float64(fgImg.Bounds().Dx()) * stager.Scale()
		fgH := float64(fgImg.Bounds().Dy()) * stager.Scale()
		dbg := processor.CreatePlacementOverlay(bgImg, native, fgW, fgH, hint)
		dbgPath := overlayPath(out)
		if err := processor.SaveImage(dbg, dbgPath, "png", 92, false); err != nil {
			log.Printf("overlay save failed: %v", err)
		} else {
			log.Printf("wrote %s", dbgPath)
		}
	}
}

func overlayPath(out string) string {
	extn := filepath.Ext(out)
	return fmt.Sprintf("%s_overlay.png", strings.TrimSuffix(out, extn))
}
