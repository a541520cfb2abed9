//go:build !gcp

package content

import (
	"context"
	"fmt"
)

func newGCSStoreFromEnv(_ context.Context) (Store, error) {
	return nil, fmt.Errorf("GCS content storage requires building with the gcp tag")
}
