package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/blobvault/internal/client/client"
	"github.com/dmitrijs2005/blobvault/internal/models"
)

func parseID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", ErrUsage, name, s)
	}
	return id, nil
}

func parseIDs(args []string, names ...string) ([]int64, error) {
	if len(args) < len(names) {
		return nil, fmt.Errorf("%w: expected %d arguments", ErrUsage, len(names))
	}
	ids := make([]int64, len(names))
	for i, name := range names {
		id, err := parseID(name, args[i])
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (a *App) unaryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) printFile(f *models.FileRecord) {
	fmt.Fprintf(a.out, "%d\t%s\t%d\t%s\n", f.ID, f.Name, f.Size, f.StorageMode)
}

func (a *App) list(ctx context.Context, args []string) error {
	ids, err := parseIDs(args, "record")
	if err != nil {
		return err
	}

	ctx, cancel := a.unaryContext(ctx)
	defer cancel()

	res, err := a.client.List(ctx, ids[0])
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}
	for _, f := range res.Data {
		a.printFile(f)
	}
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	ids, err := parseIDs(args, "record", "file")
	if err != nil {
		return err
	}

	ctx, cancel := a.unaryContext(ctx)
	defer cancel()

	res, err := a.client.Delete(ctx, ids[0], ids[1])
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %d\n", res.Data)
	return nil
}

func (a *App) upload(ctx context.Context, args []string, big bool) error {
	ids, err := parseIDs(args, "record")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: expected a file path", ErrUsage)
	}
	return a.send(ctx, client.UploadRequest{DataRecordID: ids[0], BigFile: big}, args[1])
}

func (a *App) replace(ctx context.Context, args []string) error {
	ids, err := parseIDs(args, "record", "file")
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return fmt.Errorf("%w: expected a file path", ErrUsage)
	}
	big := len(args) > 3 && args[3] == "big"
	return a.send(ctx, client.UploadRequest{DataRecordID: ids[0], FileID: ids[1], BigFile: big}, args[2])
}

func (a *App) send(ctx context.Context, req client.UploadRequest, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	req.Name = filepath.Base(path)
	res, err := a.client.Upload(ctx, req, f)
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}
	a.printFile(res.Data)
	return nil
}

// download writes the file to dest, or to the output stream when dest is
// "-". A partially written dest is removed.
func (a *App) download(ctx context.Context, args []string) (err error) {
	ids, err := parseIDs(args, "record", "file")
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return fmt.Errorf("%w: expected a destination", ErrUsage)
	}
	dest := args[2]

	res, err := a.client.Download(ctx, ids[0], ids[1])
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}
	content := res.Data.Content
	defer content.Close()

	if dest == "-" {
		_, err = io.Copy(a.out, content)
		return err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	n, err := io.Copy(out, content)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %d bytes\n", dest, n)
	return nil
}
