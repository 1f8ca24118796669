package utils

import (
	"errors"
	"net/url"
	"strings"
)

// ValidateBucketName checks a bucket name against the S3 naming rules
func ValidateBucketName(bucketName string) error {
	if len(bucketName) < 3 || len(bucketName) > 63 {
		return errors.New("bucket name must be between 3 and 63 characters")
	}
	if strings.Contains(bucketName, " ") {
		return errors.New("bucket name cannot contain spaces")
	}
	if !isDNSCompatible(bucketName) {
		return errors.New("bucket name must be DNS compliant")
	}
	return nil
}

// isDNSCompatible allows lowercase letters, digits, dots and hyphens, with
// an alphanumeric first and last character.
func isDNSCompatible(name string) bool {
	for _, char := range name {
		if !(char >= 'a' && char <= 'z') && !(char >= '0' && char <= '9') && char != '-' && char != '.' {
			return false
		}
	}
	return isAlnum(name[0]) && isAlnum(name[len(name)-1]) && !strings.Contains(name, "..")
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// ValidateEndpoint accepts "host[:port]" with an optional http(s) scheme
// and no path.
func ValidateEndpoint(endpoint string) error {
	raw := endpoint
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("endpoint must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("endpoint has no host")
	}
	if parsed.Path != "" && parsed.Path != "/" {
		return errors.New("endpoint cannot contain a path")
	}
	return nil
}
