// Command ocr recognizes the text of one image and prints it with simple
// statistics, or submits the image to the OCR worker queue.
//
// Usage:
//
//	ocr [-det model] [-rec model] [-submit] [-v] <image>
//
// Recognition needs libtesseract and a binary built with the ocr tag:
//
//	go build -tags ocr ./cmd/ocr
//
// Without the tag every recognition fails with an engine construction error;
// -submit still works.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"github.com/adverant/nexus/ocr-engine/internal/config"
	"github.com/adverant/nexus/ocr-engine/internal/logging"
	"github.com/adverant/nexus/ocr-engine/internal/queue"
	"github.com/adverant/nexus/ocr-engine/pkg/ocr"
)

const (
	separator = "----------------------------------------"
	usage     = "usage: ocr [-det model] [-rec model] [-submit] [-v] <image>\n" +
		"recognition requires libtesseract and a build with -tags ocr"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command; opts are applied after the CLI's own engine options.
func run(args []string, stdout, stderr io.Writer, opts ...ocr.Option) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("ocr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	det := fs.String("det", cfg.DetectionModelPath, "detection model path (OCR_DETECTION_MODEL)")
	rec := fs.String("rec", cfg.RecognitionModelPath, "recognition model path (OCR_RECOGNITION_MODEL)")
	submit := fs.Bool("submit", false, "enqueue the image for the OCR worker instead of processing it")
	verbose := fs.Bool("v", false, "log engine activity to stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	imagePath := fs.Arg(0)

	if *submit {
		return submitImage(cfg, imagePath, stdout, stderr)
	}

	cfg.DetectionModelPath, cfg.RecognitionModelPath = *det, *rec
	if err := cfg.ValidateModels(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := logging.NewNopLogger()
	if *verbose {
		logger = logging.NewLoggerWithLevel("ocr", "debug")
	}
	defer logger.Sync()

	fmt.Fprintln(stdout, "Creating OCR engine...")
	engineOpts := append([]ocr.Option{ocr.WithLogger(logger.Zap())}, opts...)
	engine, err := ocr.New(cfg.DetectionModelPath, cfg.RecognitionModelPath, engineOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer engine.Close()

	fmt.Fprintf(stdout, "Processing image: %s\n", imagePath)
	start := time.Now()
	text, err := engine.ProcessImage(imagePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	elapsed := time.Since(start)

	fmt.Fprintf(stdout, "Time taken: %.4f seconds\n", elapsed.Seconds())
	fmt.Fprintln(stdout, "Recognized text:")
	fmt.Fprintln(stdout, separator)
	fmt.Fprintln(stdout, text)
	fmt.Fprintln(stdout, separator)
	fmt.Fprintln(stdout, "Statistics:")
	fmt.Fprintf(stdout, "  Words: %d\n", len(strings.Fields(text)))
	fmt.Fprintf(stdout, "  Characters: %d\n", utf8.RuneCountInString(text))
	return 0
}

// jobSubmitter enqueues OCR jobs. *queue.Producer implements it.
type jobSubmitter interface {
	Submit(ctx context.Context, job queue.JobData) (string, error)
}

func submitImage(cfg *config.Config, imagePath string, stdout, stderr io.Writer) int {
	producer, err := queue.NewProducer(cfg.RedisURL, cfg.QueueName, cfg.Timeout())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return submit(ctx, producer, imagePath, stdout, stderr)
}

func submit(ctx context.Context, s jobSubmitter, imagePath string, stdout, stderr io.Writer) int {
	// The worker resolves paths from its own working directory.
	absPath, err := filepath.Abs(imagePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	jobID, err := s.Submit(ctx, queue.JobData{
		ImagePath: absPath,
		UserID:    os.Getenv("USER"),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Submitted job %s for %s\n", jobID, absPath)
	return 0
}
