package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okorvid/gitvc/internal/gitcore"
)

const (
	refsContentType     = "application/x-git-upload-pack-advertisement"
	requestContentType  = "application/x-git-upload-pack-request"
	serviceLine         = "# service=git-upload-pack\n"
)

// Ref is one reference advertised by the remote during discovery.
type Ref struct {
	Hash gitcore.ObjectName
	Name string
}

// Advertisement is the parsed result of the info/refs discovery request.
type Advertisement struct {
	Refs         []Ref
	Capabilities map[string]string
}

// DefaultBranch returns the last slash-separated component of the
// symref=HEAD:<target> capability. Per §4.7, a server that does not
// advertise symref is a FeatureUnsupported condition — this subset has no
// fallback heuristic (picking "master"/"main" by convention would silently
// guess at server behavior the spec deliberately leaves unresolved).
func (a *Advertisement) DefaultBranch() (string, error) {
	target, ok := a.Capabilities["symref"]
	if !ok {
		return "", gitcore.NewUnsupportedError("fetch", "server did not advertise symref=HEAD:<target>")
	}
	// symref value is "HEAD:refs/heads/main"; only the HEAD mapping matters here.
	const prefix = "HEAD:"
	if !strings.HasPrefix(target, prefix) {
		return "", gitcore.NewUnsupportedError("fetch", "symref capability %q does not map HEAD", target)
	}
	fullRef := strings.TrimPrefix(target, prefix)
	parts := strings.Split(fullRef, "/")
	return parts[len(parts)-1], nil
}

// Client is a minimal smart-HTTP git-upload-pack client: ref discovery plus
// a single want/have-less fetch (no shallow, no multi-ack — this subset
// always does a full clone-style fetch of one ref).
type Client struct {
	// RepoURL is the repository URL with no trailing slash, e.g.
	// "https://example.com/group/project.git".
	RepoURL string
	HTTP    *http.Client
	// OnProgress, if set, is called with each side-band-2 progress line
	// (including its trailing newline) as it is received.
	OnProgress func(line string)
}

// NewClient returns a Client for repoURL using http.DefaultClient.
func NewClient(repoURL string) *Client {
	return &Client{
		RepoURL: strings.TrimRight(repoURL, "/"),
		HTTP:    http.DefaultClient,
	}
}

// DiscoverRefs performs the GET {repo}/info/refs?service=git-upload-pack
// request and parses the ref advertisement.
func (c *Client) DiscoverRefs(ctx context.Context) (*Advertisement, error) {
	url := c.RepoURL + "/info/refs?service=git-upload-pack"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: building discovery request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: discovery request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: discovery request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading discovery response: %w", err)
	}

	return parseAdvertisement(body)
}

// parseAdvertisement decodes the pkt-line-framed info/refs response body.
func parseAdvertisement(body []byte) (*Advertisement, error) {
	packets, err := DecodeAll(body)
	if err != nil {
		return nil, err
	}
	if len(packets) == 0 {
		return nil, gitcore.NewMalformedError("fetch", "empty ref advertisement")
	}
	if string(packets[0]) != serviceLine {
		return nil, gitcore.NewMalformedError("fetch", "first packet is %q, want %q", packets[0], serviceLine)
	}

	adv := &Advertisement{Capabilities: make(map[string]string)}

	for i, pkt := range packets[1:] {
		line := strings.TrimSuffix(string(pkt), "\n")
		if line == "" {
			continue
		}
		hashHex, rest, found := strings.Cut(line, " ")
		if !found {
			return nil, gitcore.NewMalformedError("fetch", "ref line %q missing hash separator", line)
		}

		name := rest
		if i == 0 {
			if nulName, capStr, hasCaps := strings.Cut(rest, "\x00"); hasCaps {
				name = nulName
				for _, cap := range strings.Fields(capStr) {
					key, val, hasVal := strings.Cut(cap, "=")
					if hasVal {
						adv.Capabilities[key] = val
					} else {
						adv.Capabilities[key] = ""
					}
				}
			}
		}

		if strings.HasSuffix(name, "^{}") {
			// Peeled tag packets are ignored at this version.
			continue
		}

		name64, err := gitcore.ParseObjectName(hashHex)
		if err != nil {
			return nil, gitcore.NewMalformedError("fetch", "ref %q has invalid hash %q: %v", name, hashHex, err)
		}
		adv.Refs = append(adv.Refs, Ref{Hash: name64, Name: name})
	}

	return adv, nil
}

// FetchPack performs the want/have-less negotiation for a single object and
// returns the raw packfile bytes (channel-1 payload only, concatenated).
// Progress lines (channel 2) are forwarded to OnProgress if set; a channel-3
// payload aborts the fetch with its message as the error.
func (c *Client) FetchPack(ctx context.Context, want gitcore.ObjectName) ([]byte, error) {
	body, err := buildWantRequest(want)
	if err != nil {
		return nil, err
	}

	url := c.RepoURL + "/git-upload-pack"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fetch: building upload-pack request: %w", err)
	}
	req.Header.Set("Content-Type", requestContentType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: upload-pack request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: upload-pack request returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading upload-pack response: %w", err)
	}

	return c.demuxSideband(respBody)
}

// buildWantRequest renders "want <hex> side-band-64k" + flush + "done" as
// pkt-line framed request body.
func buildWantRequest(want gitcore.ObjectName) ([]byte, error) {
	var buf bytes.Buffer

	wantLine, err := EncodePkt([]byte(fmt.Sprintf("want %s side-band-64k\n", want)))
	if err != nil {
		return nil, err
	}
	buf.Write(wantLine)
	buf.Write(EncodeFlush())

	doneLine, err := EncodePkt([]byte("done\n"))
	if err != nil {
		return nil, err
	}
	buf.Write(doneLine)

	return buf.Bytes(), nil
}

// demuxSideband decodes the upload-pack response: the first packet must be
// "NAK", and every following packet is side-band multiplexed.
func (c *Client) demuxSideband(respBody []byte) ([]byte, error) {
	packets, err := DecodeAll(respBody)
	if err != nil {
		return nil, err
	}
	if len(packets) == 0 {
		return nil, gitcore.NewMalformedError("fetch", "empty upload-pack response")
	}

	ack := strings.TrimSuffix(string(packets[0]), "\n")
	if ack != "NAK" {
		return nil, gitcore.NewMalformedError("fetch", "expected NAK, got %q", ack)
	}

	var pack bytes.Buffer
	for _, pkt := range packets[1:] {
		if len(pkt) == 0 {
			return nil, gitcore.NewMalformedError("fetch", "side-band packet missing channel byte")
		}
		channel, payload := pkt[0], pkt[1:]
		switch channel {
		case 1:
			pack.Write(payload)
		case 2:
			if c.OnProgress != nil {
				c.OnProgress(string(payload))
			}
		case 3:
			return nil, fmt.Errorf("fetch: remote error: %s", string(payload))
		default:
			return nil, gitcore.NewMalformedError("fetch", "unrecognized side-band channel %d", channel)
		}
	}

	return pack.Bytes(), nil
}
