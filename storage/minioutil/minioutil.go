package minioutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/minio/madmin-go"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	minio "github.com/minio/minio/cmd"
	"github.com/stratadb/strata/util/testutils"
	"github.com/stretchr/testify/require"
)

const (
	testBucket = "strata-test"
	accessKey  = "minioadmin"
	secretKey  = "minioadmin"
)

// NewServer runs an embedded minio server over a temp directory and returns a
// client pointed at it, the test bucket name, and a teardown function.
func NewServer(t *testing.T) (*mclient.Client, string, func()) {
	t.Helper()
	ctx := context.Background()
	port, err := testutils.GetOpenPort()
	require.NoError(t, err)
	addr := fmt.Sprintf("localhost:%d", port)

	tmpdir, err := os.MkdirTemp("", "strata-minio")
	require.NoError(t, err)
	go func() {
		minio.Main([]string{"minio", "server", "--quiet", "--address", addr, tmpdir})
	}()

	madm, err := madmin.New(addr, accessKey, secretKey, false)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := madm.ServerInfo(ctx)
		return err == nil
	}, 10*time.Second, 100*time.Millisecond, "minio server did not come up")

	mc, err := mclient.New(addr, &mclient.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	require.NoError(t, err)
	require.NoError(t, mc.MakeBucket(ctx, testBucket, mclient.MakeBucketOptions{}))

	return mc, testBucket, func() {
		require.NoError(t, os.RemoveAll(tmpdir))
		// The server cannot be stopped before the test binary finishes or its
		// exit handler kills the process, so the stop is delayed and
		// best-effort.
		go func() {
			time.Sleep(5 * time.Second)
			if err := madm.ServiceStop(ctx); err != nil {
				t.Log(err)
			}
		}()
	}
}
