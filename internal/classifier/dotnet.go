package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"repoassess/internal/types"
)

// dotnetSupport is the audited support table. Tokens missing here classify as
// SupportUnknown.
var dotnetSupport = map[string]types.SupportStatus{
	"net20":  types.SupportEol,
	"net35":  types.SupportEol,
	"net40":  types.SupportEol,
	"net403": types.SupportEol,
	"net45":  types.SupportEol,
	"net451": types.SupportEol,
	"net452": types.SupportEol,
	"net46":  types.SupportEol,
	"net461": types.SupportEol,
	"net462": types.SupportEol,
	"net47":  types.SupportEol,
	"net471": types.SupportEol,
	"net472": types.SupportEol,
	"net48":  types.SupportNearEol,
	"net481": types.SupportSupported,

	"netcoreapp1.0": types.SupportEol,
	"netcoreapp1.1": types.SupportEol,
	"netcoreapp2.0": types.SupportEol,
	"netcoreapp2.1": types.SupportEol,
	"netcoreapp2.2": types.SupportEol,
	"netcoreapp3.0": types.SupportEol,
	"netcoreapp3.1": types.SupportEol,

	"net5.0":  types.SupportEol,
	"net6.0":  types.SupportEol,
	"net7.0":  types.SupportEol,
	"net8.0":  types.SupportSupported,
	"net9.0":  types.SupportSupported,
	"net10.0": types.SupportSupported,

	"netstandard1.0": types.SupportSupported,
	"netstandard1.1": types.SupportSupported,
	"netstandard1.2": types.SupportSupported,
	"netstandard1.3": types.SupportSupported,
	"netstandard1.4": types.SupportSupported,
	"netstandard1.5": types.SupportSupported,
	"netstandard1.6": types.SupportSupported,
	"netstandard2.0": types.SupportSupported,
	"netstandard2.1": types.SupportSupported,
}

var (
	legacyToken = regexp.MustCompile(`^net[234]\d*$`)
	modernToken = regexp.MustCompile(`^net(\d+)\.\d+$`)
	// net8.0-windows, net6.0-android31.0
	platformSuffix = regexp.MustCompile(`^(net\d+\.\d+)-[a-z]+[0-9.]*$`)
)

type dotnetClassifier struct{}

func (dotnetClassifier) Name() string { return "dotnet" }

func (dotnetClassifier) CanClassify(p Project) bool {
	return p.ProjectType == types.ProjectTypeDotNet
}

func (dotnetClassifier) Classify(p Project) types.ModernizationSignals {
	raw := frameworkToken(p)
	token := NormalizeDotNet(raw)
	out := types.ModernizationSignals{
		ProjectID:           p.ID,
		RuntimePlatform:     types.PlatformDotNet,
		RuntimeGeneration:   dotnetGeneration(token),
		FrameworkIdentifier: identifier(raw, types.PlatformDotNet),
		FrameworkVersion:    strPtr(dotnetVersion(token)),
		SupportStatus:       types.SupportUnknown,
	}
	if status, ok := dotnetSupport[token]; ok {
		out.SupportStatus = status
	}
	return out
}

// NormalizeDotNet trims, lowercases and drops an OS suffix from a target
// framework moniker.
func NormalizeDotNet(raw string) string {
	token := strings.ToLower(strings.TrimSpace(raw))
	if m := platformSuffix.FindStringSubmatch(token); m != nil {
		token = m[1]
	}
	return token
}

func dotnetGeneration(token string) types.RuntimeGeneration {
	switch {
	case token == "":
		return types.GenerationUnknown
	case strings.HasPrefix(token, "netcoreapp"):
		return types.GenerationCoreEra
	case strings.HasPrefix(token, "netstandard"):
		return types.GenerationModern
	case legacyToken.MatchString(token):
		return types.GenerationLegacyFramework
	}
	if m := modernToken.FindStringSubmatch(token); m != nil {
		if major, err := strconv.Atoi(m[1]); err == nil && major >= 5 {
			return types.GenerationModern
		}
	}
	return types.GenerationUnknown
}

// dotnetVersion extracts the numeric part: net472 => 4.7.2, net8.0 => 8.0,
// netcoreapp3.1 => 3.1.
func dotnetVersion(token string) string {
	switch {
	case strings.HasPrefix(token, "netcoreapp"):
		return strings.TrimPrefix(token, "netcoreapp")
	case strings.HasPrefix(token, "netstandard"):
		return strings.TrimPrefix(token, "netstandard")
	case legacyToken.MatchString(token):
		digits := strings.TrimPrefix(token, "net")
		return strings.Join(strings.Split(digits, ""), ".")
	case modernToken.MatchString(token):
		return strings.TrimPrefix(token, "net")
	}
	return ""
}
