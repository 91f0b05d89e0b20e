package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/myzuka-downloader/internal/config"
)

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	opts := &options{}
	cmd := newRootCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"-n", "2", "--socks", "127.0.0.1:9050", "-t", "30s", "--playlist"}))

	s := config.DefaultSettings()
	s.DownloadsPath = "/from/config"
	applyFlags(cmd, opts, s)

	assert.Equal(t, 2, s.Concurrency)
	assert.Equal(t, "127.0.0.1:9050", s.SocksProxy)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.True(t, s.CreatePlaylist)
	assert.Equal(t, "/from/config", s.DownloadsPath)
}

func TestTimeoutFlag_AcceptsSecondsAndDurations(t *testing.T) {
	tests := []struct {
		arg  string
		want time.Duration
	}{
		{"10", 10 * time.Second},
		{"2.5", 2500 * time.Millisecond},
		{"1m", time.Minute},
		{"750ms", 750 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			opts := &options{}
			cmd := newRootCmd(opts)
			require.NoError(t, cmd.ParseFlags([]string{"-t", tt.arg}))

			s := config.DefaultSettings()
			applyFlags(cmd, opts, s)
			assert.Equal(t, tt.want, s.Timeout)
		})
	}
}

func TestTimeoutFlag_RejectsGarbage(t *testing.T) {
	cmd := newRootCmd(&options{})
	assert.Error(t, cmd.ParseFlags([]string{"-t", "soon"}))
}

func TestTimeoutFlag_DefaultMatchesSettings(t *testing.T) {
	opts := &options{}
	newRootCmd(opts)
	assert.Equal(t, config.DefaultSettings().Timeout, time.Duration(opts.timeout))
}

func TestInputURLs(t *testing.T) {
	_, err := inputURLs(&options{}, nil)
	assert.Error(t, err)

	_, err = inputURLs(&options{urlList: "list.yaml"}, []string{"http://myzuka.club/Album/1/A"})
	assert.Error(t, err)

	urls, err := inputURLs(&options{}, []string{"http://myzuka.club/Album/1/A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://myzuka.club/Album/1/A"}, urls)
}
