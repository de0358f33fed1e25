package remotecache

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vercel/turborepo-cache/internal/cacheitem"
	"github.com/vercel/turborepo-cache/internal/signature"
	"github.com/vercel/turborepo-cache/internal/turbopath"
)

func buildArchive(t *testing.T) turbopath.AbsoluteSystemPath {
	t.Helper()
	inputDir := turbopath.AbsoluteSystemPath(t.TempDir())
	archiveDir := turbopath.AbsoluteSystemPath(t.TempDir())
	archivePath := turbopath.AnchoredSystemPath("out.tar.zst").RestoreAnchor(archiveDir)

	sourceFile := turbopath.AnchoredSystemPath("hello.txt").RestoreAnchor(inputDir)
	assert.NoError(t, sourceFile.WriteFile([]byte("hello"), 0644))

	archive, err := cacheitem.Create(archivePath)
	assert.NoError(t, err)
	assert.NoError(t, archive.AddFile(inputDir, turbopath.AnchoredSystemPath("hello.txt")))
	assert.NoError(t, archive.Close())

	return archivePath
}

func Test_PutAndFetchRoundtrip(t *testing.T) {
	archivePath := buildArchive(t)
	body, err := archivePath.ReadFile()
	assert.NoError(t, err)

	var storedBody []byte
	var storedTag string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			b, err := ioutil.ReadAll(r.Body)
			assert.NoError(t, err)
			storedBody = b
			storedTag = r.Header.Get(HeaderArtifactTag)
			w.WriteHeader(http.StatusAccepted)
		case http.MethodGet:
			w.Header().Set(HeaderArtifactDuration, "42")
			if storedTag != "" {
				w.Header().Set(HeaderArtifactTag, storedTag)
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(storedBody)
		}
	}))
	defer server.Close()

	t.Setenv(signature.EnvSignatureKey, "my-secret-key")
	auth := &signature.Authenticator{TeamID: "team_x", Enabled: true}

	client := New(Config{APIURL: server.URL, TeamID: "team_x", Signature: auth})

	assert.NoError(t, client.Put("some-hash", archivePath, 123))
	assert.Equal(t, body, storedBody)
	assert.NotEmpty(t, storedTag)

	restoreAnchor := turbopath.AbsoluteSystemPath(t.TempDir())
	result, err := client.Fetch("some-hash", restoreAnchor)
	assert.NoError(t, err)
	assert.True(t, result.Hit)
	assert.Equal(t, 42, result.DurationMs)
	assert.Len(t, result.Restored, 1)
}

func Test_FetchMissingIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(Config{APIURL: server.URL})
	restoreAnchor := turbopath.AbsoluteSystemPath(t.TempDir())

	result, err := client.Fetch("missing-hash", restoreAnchor)
	assert.NoError(t, err)
	assert.False(t, result.Hit)
}

func Test_FetchHonorsPreflightRedirectAndAuthGate(t *testing.T) {
	archivePath := buildArchive(t)
	body, err := archivePath.ReadFile()
	assert.NoError(t, err)

	var sawAuthHeader bool

	mux := http.NewServeMux()
	mux.HandleFunc("/redirected", func(w http.ResponseWriter, r *http.Request) {
		sawAuthHeader = r.Header.Get("Authorization") != ""
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v8/artifacts/redirect-hash", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set(HeaderLocation, server.URL+"/redirected")
			w.Header().Set(HeaderAccessControlHeaders, "Content-Type")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	})

	client := New(Config{APIURL: server.URL, Token: "a-token", UsePreflight: true})
	restoreAnchor := turbopath.AbsoluteSystemPath(t.TempDir())

	result, err := client.Fetch("redirect-hash", restoreAnchor)
	assert.NoError(t, err)
	assert.True(t, result.Hit)
	assert.False(t, sawAuthHeader, "preflight did not allow Authorization, so the fetch must not carry it")
}

func Test_ExistsReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("teamId") == "present" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	present, err := New(Config{APIURL: server.URL, TeamID: "present"}).Exists("hash")
	assert.NoError(t, err)
	assert.True(t, present)

	missing, err := New(Config{APIURL: server.URL, TeamID: "absent"}).Exists("hash")
	assert.NoError(t, err)
	assert.False(t, missing)
}
