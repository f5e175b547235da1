package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Write stores rec at dest. The format follows the extension (.arrow,
// .parquet or .csv); a gs://bucket/object destination is uploaded to
// Google Cloud Storage.
func Write(ctx context.Context, rec arrow.Record, dest string) error {
	format, err := formatOf(dest)
	if err != nil {
		return err
	}
	if strings.HasPrefix(dest, "gs://") {
		bucket, object, ok := parseGCS(dest)
		if !ok {
			return fmt.Errorf("invalid gcs destination %q (want gs://bucket/object)", dest)
		}
		return writeGCS(ctx, rec, bucket, object, format)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file %q: %w", dest, err)
	}
	if err := encode(file, rec, format); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeGCS(ctx context.Context, rec arrow.Record, bucket, object, format string) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("gcs client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	if err := encode(w, rec, format); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

// encode writes rec to w without closing w.
func encode(w io.Writer, rec arrow.Record, format string) error {
	sink := struct{ io.Writer }{w}
	switch format {
	case "arrow":
		writer, err := ipc.NewFileWriter(sink,
			ipc.WithSchema(rec.Schema()),
			ipc.WithAllocator(memory.NewGoAllocator()),
		)
		if err != nil {
			return fmt.Errorf("failed to create Arrow file writer: %w", err)
		}
		if err := writer.Write(rec); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write record to Arrow file: %w", err)
		}
		return writer.Close()

	case "parquet":
		props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
		writer, err := pqarrow.NewFileWriter(rec.Schema(), sink, props, pqarrow.DefaultWriterProps())
		if err != nil {
			return fmt.Errorf("failed to create Parquet writer: %w", err)
		}
		if err := writer.Write(rec); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write record to Parquet: %w", err)
		}
		return writer.Close()

	case "csv":
		writer := csv.NewWriter(sink, rec.Schema(), csv.WithHeader(true))
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("failed to write record to CSV: %w", err)
		}
		writer.Flush()
		return writer.Error()
	}
	return fmt.Errorf("unsupported output format %q", format)
}

func formatOf(dest string) (string, error) {
	switch ext := strings.ToLower(path.Ext(dest)); ext {
	case ".arrow", ".ipc", ".feather":
		return "arrow", nil
	case ".parquet":
		return "parquet", nil
	case ".csv":
		return "csv", nil
	default:
		return "", fmt.Errorf("unsupported output extension %q (want .arrow, .parquet or .csv)", ext)
	}
}

// parseGCS splits gs://bucket/object.
func parseGCS(dest string) (string, string, bool) {
	rest, ok := strings.CutPrefix(dest, "gs://")
	if !ok {
		return "", "", false
	}
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}
