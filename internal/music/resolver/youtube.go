package resolver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/keshon/taint-fm/internal/music/queue"

	_ "github.com/bdandy/go-socks4"
	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"
)

// YouTube resolves YouTube videos and playlists without external executables.
// It always streams; downloads are left to the yt-dlp backend.
type YouTube struct {
	client *youtube.Client
	log    zerolog.Logger
}

// NewYouTube creates the backend. proxyStr may be empty or an
// http, https, socks5 or socks4 URL.
func NewYouTube(proxyStr string, log zerolog.Logger) *YouTube {
	log = log.With().Str("backend", "youtube").Logger()
	return &YouTube{
		client: &youtube.Client{HTTPClient: newHTTPClient(proxyStr, log)},
		log:    log,
	}
}

func (y *YouTube) Name() string { return "youtube" }

// ResolveFlat returns the entries of a playlist or the single video. Playlist
// entries carry only an id, the locator is derived later.
func (y *YouTube) ResolveFlat(ctx context.Context, locator string) ([]Entry, error) {
	if !isYouTube(locator) {
		return nil, resolutionError(locator, ErrUnsupported)
	}

	if isPlaylist(locator) {
		pl, err := y.client.GetPlaylistContext(ctx, locator)
		if err != nil {
			return nil, resolutionError(locator, err)
		}
		entries := make([]Entry, 0, len(pl.Videos))
		for _, v := range pl.Videos {
			if v == nil {
				continue
			}
			entries = append(entries, Entry{
				"id":       v.ID,
				"title":    v.Title,
				"uploader": v.Author,
				"duration": v.Duration.Seconds(),
			})
		}
		y.log.Debug().Str("playlist", pl.Title).Int("entries", len(entries)).Msg("Resolved playlist")
		return entries, nil
	}

	video, err := y.client.GetVideoContext(ctx, locator)
	if err != nil {
		return nil, resolutionError(locator, err)
	}
	return []Entry{{
		"id":          video.ID,
		"title":       video.Title,
		"uploader":    video.Author,
		"duration":    video.Duration.Seconds(),
		"webpage_url": fmt.Sprintf(WatchURL, video.ID),
	}}, nil
}

// ResolveForPlayback returns a direct stream URL, preferring audio-only formats
func (y *YouTube) ResolveForPlayback(ctx context.Context, track queue.Track) (Playable, error) {
	if !isYouTube(track.Locator) {
		return Playable{}, resolutionError(track.Locator, ErrUnsupported)
	}

	video, err := y.client.GetVideoContext(ctx, track.Locator)
	if err != nil {
		return Playable{}, resolutionError(track.Locator, err)
	}

	format := pickAudioFormat(video.Formats)
	if format == nil {
		return Playable{}, resolutionError(track.Locator, ErrNoStream)
	}

	link, err := y.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return Playable{}, resolutionError(track.Locator, fmt.Errorf("stream url: %w", err))
	}

	return Playable{
		Locator: link,
		ID:      video.ID,
		Ext:     mimeExt(format.MimeType),
		Title:   video.Title,
		Raw: Entry{
			"id":       video.ID,
			"title":    video.Title,
			"uploader": video.Author,
		},
	}, nil
}

// pickAudioFormat returns the first audio-only format, or the first format
// with audio when every one of them carries video too
func pickAudioFormat(formats youtube.FormatList) *youtube.Format {
	withAudio := formats.WithAudioChannels()
	for i := range withAudio {
		if strings.HasPrefix(withAudio[i].MimeType, "audio/") {
			return &withAudio[i]
		}
	}
	if len(withAudio) == 0 {
		return nil
	}
	return &withAudio[0]
}

func isYouTube(locator string) bool {
	u, err := url.Parse(locator)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

func isPlaylist(locator string) bool {
	u, err := url.Parse(locator)
	if err != nil {
		return false
	}
	return u.Query().Get("list") != "" && u.Query().Get("v") == ""
}

// mimeExt maps `audio/webm; codecs="opus"` to "webm"
func mimeExt(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(mime), "/")
	if !ok {
		return ""
	}
	if sub == "mp4" {
		return "m4a"
	}
	return sub
}

// newHTTPClient builds the HTTP client used by the YouTube backend, routed
// through proxyStr when it is set. An unusable proxy falls back to a direct client.
func newHTTPClient(proxyStr string, log zerolog.Logger) *http.Client {
	direct := &http.Client{Timeout: 15 * time.Second}
	if proxyStr == "" {
		return direct
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid proxy, going direct")
		return direct
	}

	var transport *http.Transport
	switch proxyURL.Scheme {
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	case "socks5", "socks4":
		// socks4 is registered with x/net/proxy by go-socks4
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Str("scheme", proxyURL.Scheme).Msg("Proxy dialer error, going direct")
			return direct
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}
	default:
		log.Warn().Str("scheme", proxyURL.Scheme).Msg("Unsupported proxy scheme, going direct")
		return direct
	}

	log.Info().Str("scheme", proxyURL.Scheme).Str("host", proxyURL.Host).Msg("Using proxy")
	return &http.Client{Timeout: 15 * time.Second, Transport: transport}
}
