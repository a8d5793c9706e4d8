package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is one configured substitution: occurrences of Find on the first
// page are redacted and text is re-inserted in their place.
type Rule struct {
	Find string `yaml:"replace"`
	With string `yaml:"with"`
}

// Inert reports whether the rule is skipped during substitution. A rule
// missing either field never fails, it just does nothing.
func (r Rule) Inert() bool {
	return r.Find == "" || r.With == ""
}

// Loader reads the token, authorized user id, and replacement rules from
// their files. Every accessor hits the filesystem at call time; nothing is
// cached, so a rules-file edit takes effect on the next processed document.
type Loader struct {
	TokenPath  string
	UserIDPath string
	RulesPath  string
}

// NewLoader builds a Loader over the configured file paths.
func NewLoader(s Settings) *Loader {
	return &Loader{
		TokenPath:  s.TokenFile,
		UserIDPath: s.UserIDFile,
		RulesPath:  s.RulesFile,
	}
}

// Token returns the bot token, a single trimmed line.
func (l *Loader) Token() (string, error) {
	raw, err := os.ReadFile(l.TokenPath)
	if err != nil {
		return "", fmt.Errorf("%w: token file %s: %v", ErrUnavailable, l.TokenPath, err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("%w: token file %s is empty", ErrUnavailable, l.TokenPath)
	}
	return token, nil
}

// AuthorizedUserID returns the single user id allowed to talk to the bot.
func (l *Loader) AuthorizedUserID() (int64, error) {
	raw, err := os.ReadFile(l.UserIDPath)
	if err != nil {
		return 0, fmt.Errorf("%w: user id file %s: %v", ErrUnavailable, l.UserIDPath, err)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: user id file %s: %v", ErrUnavailable, l.UserIDPath, err)
	}
	return id, nil
}

// Rules returns the configured rules in file order. Inert entries are kept;
// the substitution engine skips them. An empty or null document yields an
// empty list.
func (l *Loader) Rules() ([]Rule, error) {
	raw, err := os.ReadFile(l.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: rules file %s: %v", ErrUnavailable, l.RulesPath, err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("%w: rules file %s: %v", ErrUnavailable, l.RulesPath, err)
	}
	return rules, nil
}

// Validate exercises all three accessors. The telegram command calls it
// before starting the session; any error here is fatal.
func (l *Loader) Validate() error {
	if _, err := l.Token(); err != nil {
		return err
	}
	if _, err := l.AuthorizedUserID(); err != nil {
		return err
	}
	_, err := l.Rules()
	return err
}
