package render

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/sonnix-labs/pgease/internal/database"
	"github.com/sonnix-labs/pgease/internal/filestore"
	"github.com/sonnix-labs/pgease/internal/logger"
)

// EncodeCSV writes the full dataset to w, header row first.
// NULL values render as empty fields.
func EncodeCSV(w io.Writer, ds *database.Dataset) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ds.Columns); err != nil {
		return err
	}

	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, val := range row {
			record[i] = csvValue(val)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSV writes the full dataset to a file at path.
func WriteCSV(ds *database.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		logger.Errorf("error saving data to CSV: %v", err)
		return err
	}
	if err := EncodeCSV(f, ds); err != nil {
		f.Close()
		logger.Errorf("error saving data to CSV: %v", err)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Infof("data saved to %s", path)
	return nil
}

// UploadCSV encodes the dataset and uploads it to an object store bucket
// under key, creating the bucket if needed.
func UploadCSV(ctx context.Context, store filestore.Store, bucket, key string, ds *database.Dataset) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, ds); err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx, bucket); err != nil {
		return err
	}
	if err := store.PutObject(ctx, bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv"); err != nil {
		logger.Errorf("error uploading CSV export: %v", err)
		return err
	}
	logger.Infof("data uploaded to %s/%s", bucket, key)
	return nil
}

func csvValue(v any) string {
	if v == nil {
		return ""
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
