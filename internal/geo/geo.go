// 包 geo：根据访问者 IP 推测所在地，用作表单“地点”输入框的默认建议
package geo

import (
	"net"
	"strings"
)

// Location：建议所需的最小地域信息
type Location struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

// Suggestion：组合为 "City, Region"；缺失字段依次回退到国家
func (l Location) Suggestion() string {
	var parts []string
	for _, s := range []string{l.City, l.Region, l.Country} {
		if s == "" {
			continue
		}
		if len(parts) > 0 && strings.EqualFold(parts[len(parts)-1], s) {
			continue
		}
		parts = append(parts, s)
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, ", ")
}

type Locator interface {
	Lookup(ip string) (Location, bool)
}

// Chain：按顺序尝试多个数据源，首个命中即返回
type Chain struct {
	list []Locator
}

func NewChain(list ...Locator) *Chain {
	c := &Chain{}
	for _, l := range list {
		if l != nil {
			c.list = append(c.list, l)
		}
	}
	return c
}

// Len：有效数据源数量；为 0 时建议功能关闭
func (c *Chain) Len() int { return len(c.list) }

func (c *Chain) Lookup(ip string) (Location, bool) {
	if !Routable(ip) {
		return Location{}, false
	}
	for _, s := range c.list {
		if l, ok := s.Lookup(ip); ok && l.Suggestion() != "" {
			return l, true
		}
	}
	return Location{}, false
}

// Routable：回环、私有、链路本地地址不参与查询
func Routable(ip string) bool {
	p := net.ParseIP(strings.TrimSpace(ip))
	if p == nil {
		return false
	}
	return !(p.IsLoopback() || p.IsPrivate() || p.IsLinkLocalUnicast() || p.IsUnspecified())
}
