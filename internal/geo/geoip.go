package geo

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// GeoIP：MaxMind GeoIP2/GeoLite2 City 库
type GeoIP struct {
	r    *geoip2.Reader
	lang string
}

// OpenGeoIP：打开 mmdb 文件；lang 为空时使用 en
func OpenGeoIP(path, lang string) (*GeoIP, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = "en"
	}
	return &GeoIP{r: r, lang: lang}, nil
}

func (g *GeoIP) Close() error { return g.r.Close() }

func (g *GeoIP) Lookup(ip string) (Location, bool) {
	p := net.ParseIP(ip)
	if p == nil {
		return Location{}, false
	}
	rec, err := g.r.City(p)
	if err != nil {
		return Location{}, false
	}
	l := Location{
		Country: g.name(rec.Country.Names),
		City:    g.name(rec.City.Names),
	}
	if len(rec.Subdivisions) > 0 {
		l.Region = g.name(rec.Subdivisions[0].Names)
	}
	return l, l.Country != "" || l.City != ""
}

func (g *GeoIP) name(names map[string]string) string {
	if v := names[g.lang]; v != "" {
		return v
	}
	return names["en"]
}
