package viewer

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Endpoints           string        `default:"https://YOUR_SUBDOMAIN.playit.gg/video_feed,https://YOUR_URL.ngrok.io/video_feed" help:"comma separated candidate stream urls. only the first is used"`
	EndpointsFile       string        `default:"" help:"optional yaml file with a urls list, overrides --viewer.endpoints"`
	MaxErrors           int           `default:"10" help:"consecutive load failures before retries stop until a manual refresh"`
	RetryDelay          time.Duration `default:"2s" help:"delay before each retry"`
	RetryJitter         bool          `default:"false" help:"if true, will jitter the retry delay"`
	UptimeInterval      time.Duration `default:"1s" help:"how often the uptime clock is redrawn"`
	LastUpdatedInterval time.Duration `default:"5s" help:"how often the last updated time is refreshed while online"`
}

// Candidates returns the ordered candidate stream URLs, read from the
// endpoints file when one is configured.
func (c Config) Candidates() ([]string, error) {
	if c.EndpointsFile != "" {
		return LoadStreams(c.EndpointsFile)
	}
	var urls []string
	for _, u := range strings.Split(c.Endpoints, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

type streamsFile struct {
	URLs []string `yaml:"urls"`
}

// LoadStreams reads a yaml file of the form
//
//	urls:
//	  - https://example.playit.gg/video_feed
func LoadStreams(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	var f streamsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, Error.New("%s: %v", path, err)
	}
	return f.URLs, nil
}
