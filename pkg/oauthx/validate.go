package oauthx

import (
	"fmt"
	"regexp"
	"strings"
)

// validAuthURLs is the allow-list of known identity provider environments.
var validAuthURLs = []string{
	"https://auth.simpleviewinc.com/",
	"https://auth.dev.simpleviewinc.com/",
	"https://auth.qa.simpleviewinc.com/",
	"https://auth.kube.simpleview.io/",
}

// clusterLocalAuthURL matches the cluster-local service address used when
// running beside the identity provider inside the same cluster.
var clusterLocalAuthURL = regexp.MustCompile(`http[^.]+\.ui-service\.default\.svc\.cluster\.local`)

// ValidateAuthURL checks authURL against the environment allow-list.
func ValidateAuthURL(authURL string) error {
	for _, valid := range validAuthURLs {
		if authURL == valid {
			return nil
		}
	}

	if clusterLocalAuthURL.MatchString(authURL) {
		return nil
	}

	return fmt.Errorf("oauthx: authUrl must be one of %s", strings.Join(validAuthURLs, ", "))
}
