package output

import (
	"regexp"
	"strconv"
)

// MergeInfo describes what a merge commit message says was merged.
type MergeInfo struct {
	Style       string `json:"style"`
	Source      string `json:"source,omitempty"`
	Target      string `json:"target,omitempty"`
	PullRequest int    `json:"pullRequest,omitempty"`
}

type mergeStyle struct {
	name    string
	pattern *regexp.Regexp
}

// mergeStyles are tried in order; the first match wins. Squash styles come
// last because their patterns are the loosest.
var mergeStyles = []mergeStyle{
	{"git", regexp.MustCompile(`(?i)^Merge (?:branch|tag) '(?P<source>[^']*)'(?: into (?P<target>\S*))?`)},
	{"smartgit", regexp.MustCompile(`(?i)^Finish (?P<source>\S*)(?: into (?P<target>\S*))?`)},
	{"bitbucket", regexp.MustCompile(`(?is)^(?:Merge pull request|Pull request) #(?P<pr>\d+).*?(?:from|in) .* from (?P<source>\S*) to (?P<target>\S*)`)},
	{"github", regexp.MustCompile(`(?i)^Merge pull request #(?P<pr>\d+) (?:from|in) (?P<source>\S*)(?: into (?P<target>\S*))?`)},
	{"remote-tracking", regexp.MustCompile(`(?i)^Merge remote-tracking branch '(?P<source>[^']*)'(?: into (?P<target>\S*))?`)},
	{"github-squash", regexp.MustCompile(`^.+\(#(?P<pr>\d+)\)$`)},
	{"bitbucket-squash", regexp.MustCompile(`(?i)^Merged in (?P<source>\S*) \(pull request #(?P<pr>\d+)\)`)},
}

// ParseMerge reads the merged source, target and pull request number from
// a commit message. It reports false when no known style matches.
func ParseMerge(message string) (MergeInfo, bool) {
	for _, style := range mergeStyles {
		match := style.pattern.FindStringSubmatch(message)
		if match == nil {
			continue
		}

		info := MergeInfo{Style: style.name}
		for i, group := range style.pattern.SubexpNames() {
			if i == 0 || match[i] == "" {
				continue
			}
			switch group {
			case "source":
				info.Source = match[i]
			case "target":
				info.Target = match[i]
			case "pr":
				info.PullRequest, _ = strconv.Atoi(match[i])
			}
		}
		return info, true
	}
	return MergeInfo{}, false
}
