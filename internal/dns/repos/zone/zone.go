// Package zone loads authoritative zone data from YAML, JSON, or TOML files.
// A zone file declares its origin, an optional default TTL, and a map of
// names to typed record values:
//
//	origin: example.com
//	ttl: 300
//	records:
//	  "@":
//	    SOA: "ns1.example.com hostmaster.example.com 1 7200 3600 1209600 300"
//	    A: 192.0.2.10
//	  www:
//	    A: [192.0.2.10, 192.0.2.11]
//
// Loading is fail-fast: a zone that parses is a zone that is fully served.
package zone

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/sentineldns/sentinel/internal/dns/common/dnsutil"
	"github.com/sentineldns/sentinel/internal/dns/common/log"
	"github.com/sentineldns/sentinel/internal/dns/domain"
)

// Zone is the parsed content of one zone file.
type Zone struct {
	Origin  string
	SOA     domain.ResourceRecord
	Records []domain.ResourceRecord
}

// LoadDirectory loads every supported zone file under dir. Files with other
// extensions are ignored; any parse or validation failure aborts the load.
func LoadDirectory(dir string, defaultTTL time.Duration, logger log.Logger) ([]Zone, error) {
	var zones []Zone
	seen := make(map[string]string) // origin -> file

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if parserFor(path) == nil {
			return nil
		}
		z, err := LoadFile(path, defaultTTL)
		if err != nil {
			return err
		}
		if prev, dup := seen[z.Origin]; dup {
			return fmt.Errorf("zone %s defined in both %s and %s", z.Origin, prev, path)
		}
		seen[z.Origin] = path
		zones = append(zones, z)
		logger.Info(map[string]any{
			"zone":    z.Origin,
			"file":    path,
			"records": len(z.Records),
		}, "Loaded zone")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// LoadFile parses a single zone file. Each zone must carry exactly one SOA
// record, owned by the origin.
func LoadFile(path string, defaultTTL time.Duration) (Zone, error) {
	parser := parserFor(path)
	if parser == nil {
		return Zone{}, fmt.Errorf("unsupported zone file extension: %s", path)
	}

	// A "/" delimiter keeps dots inside record labels from being split
	// into nested paths.
	k := koanf.New("/")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return Zone{}, fmt.Errorf("load zone file %s: %w", path, err)
	}

	origin := dnsutil.CanonicalName(k.String("origin"))
	if origin == "" {
		return Zone{}, fmt.Errorf("zone file %s missing 'origin'", path)
	}
	ttl := uint32(defaultTTL.Seconds())
	if k.Exists("ttl") {
		ttl = uint32(k.Int64("ttl"))
	}

	rawRecords, ok := k.Get("records").(map[string]any)
	if !ok {
		return Zone{}, fmt.Errorf("zone file %s missing 'records' map", path)
	}

	z := Zone{Origin: origin}
	for label, raw := range rawRecords {
		byType, ok := raw.(map[string]any)
		if !ok {
			return Zone{}, fmt.Errorf("zone %s: records for %q must map type to value", origin, label)
		}
		fqdn := expandName(label, origin)
		for typeName, val := range byType {
			rrtype := domain.RRTypeFromString(strings.ToUpper(typeName))
			if !rrtype.IsValid() {
				return Zone{}, fmt.Errorf("zone %s: unknown record type %q for %s", origin, typeName, fqdn)
			}
			for _, value := range stringValues(val) {
				rr, err := buildRecord(fqdn, rrtype, value, ttl)
				if err != nil {
					return Zone{}, fmt.Errorf("zone %s: %w", origin, err)
				}
				if rrtype == domain.RRTypeSOA {
					if z.SOA.Data != nil {
						return Zone{}, fmt.Errorf("zone %s: more than one SOA record", origin)
					}
					if rr.Name != origin {
						return Zone{}, fmt.Errorf("zone %s: SOA must be owned by the origin, got %s", origin, rr.Name)
					}
					z.SOA = rr
				}
				z.Records = append(z.Records, rr)
			}
		}
	}
	if z.SOA.Data == nil {
		return Zone{}, fmt.Errorf("zone %s: missing SOA record", origin)
	}
	return z, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	case ".toml":
		return toml.Parser()
	default:
		return nil
	}
}

// expandName resolves a zone file label against the origin: "@" is the
// origin itself, absolute names (trailing dot) stand alone, anything else is
// relative to the origin.
func expandName(label, origin string) string {
	if label == "@" {
		return origin
	}
	if strings.HasSuffix(label, ".") {
		return dnsutil.CanonicalName(label)
	}
	return dnsutil.CanonicalName(label) + "." + origin
}

// stringValues flattens a scalar-or-list zone value into strings.
func stringValues(val any) []string {
	switch v := val.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		return []string{s}
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	default:
		return nil
	}
}

func buildRecord(fqdn string, rrtype domain.RRType, value string, ttl uint32) (domain.ResourceRecord, error) {
	data, err := parseValue(rrtype, value)
	if err != nil {
		return domain.ResourceRecord{}, err
	}
	return domain.NewResourceRecord(fqdn, rrtype, domain.RRClassIN, ttl, data)
}
