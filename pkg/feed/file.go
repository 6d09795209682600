package feed

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sw33tLie/itemstate/internal/utils"
	"github.com/sw33tLie/itemstate/pkg/items"
)

// FileSource reads items from a JSON file, or from Stdin when Path is "-".
type FileSource struct {
	Path  string
	Stdin io.Reader
}

func (f *FileSource) Items(ctx context.Context) ([]items.Item, error) {
	var (
		data []byte
		err  error
	)
	if f.Path == "-" {
		in := f.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(f.Path)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list, err := items.ParseItems(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	utils.Log.Debugf("[feed] read %d items from %s", len(list), f.Path)
	return list, nil
}
