package geo

import (
	"fmt"
	"strings"

	"github.com/lionsoul2014/ip2region/binding/golang/xdb"
)

// minXdbSize：头部加向量索引的长度，短于此的内容无法检索
const minXdbSize = xdb.HeaderInfoLength + xdb.VectorIndexRows*xdb.VectorIndexCols*xdb.VectorIndexSize

// IP2Region：ip2region v4 xdb 本地库，作为 GeoIP 之后的补充
// 约束：整库只读加载到内存；xdb.Searcher 非并发安全，每次查询基于共享内容新建一个
type IP2Region struct {
	content []byte
}

func OpenIP2Region(v4Path string) (*IP2Region, error) {
	b, err := xdb.LoadContentFromFile(v4Path)
	if err != nil {
		return nil, err
	}
	return newIP2Region(b)
}

func newIP2Region(content []byte) (*IP2Region, error) {
	if len(content) < minXdbSize {
		return nil, fmt.Errorf("ip2region: xdb content too short (%d bytes)", len(content))
	}
	return &IP2Region{content: content}, nil
}

// Close：内容在内存中，无需释放文件句柄
func (c *IP2Region) Close() {}

func (c *IP2Region) Lookup(ip string) (Location, bool) {
	if ip == "" || strings.Contains(ip, ":") {
		return Location{}, false
	}
	s, err := xdb.NewWithBuffer(xdb.IPv4, c.content)
	if err != nil {
		return Location{}, false
	}
	region, err := s.SearchByStr(ip)
	if err != nil || region == "" {
		return Location{}, false
	}
	l := parseRegion(region)
	return l, l.Country != ""
}

// parseRegion：解析 "国家|区域|省份|城市|ISP"；0 与 unknown 视为空
func parseRegion(s string) Location {
	parts := strings.Split(s, "|")
	var l Location
	if len(parts) > 0 {
		l.Country = safe(parts[0])
	}
	if len(parts) > 2 {
		l.Region = safe(parts[2])
	}
	if l.Region == "" && len(parts) > 1 {
		l.Region = safe(parts[1])
	}
	if len(parts) > 3 {
		l.City = safe(parts[3])
	}
	return l
}

func safe(s string) string {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" || strings.EqualFold(s, "unknown") {
		return ""
	}
	return s
}
