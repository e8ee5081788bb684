package dispatch

import "strings"

// ElectionType：表单提供的选举类型标签；自由输入不受此集合限制
type ElectionType string

const (
	Local        ElectionType = "local"
	County       ElectionType = "county"
	State        ElectionType = "state"
	Federal      ElectionType = "federal"
	Presidential ElectionType = "presidential"
)

var ElectionTypes = []ElectionType{Local, County, State, Federal, Presidential}

// Label：用于查询串与页面展示的形式，例如 "State Election"
func (e ElectionType) Label() string {
	s := string(e)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:] + " Election"
}

// NormalizeElectionType：已知标签（可带 election/elections 后缀，大小写不敏感）转换为 Label，
// 其余文本仅折叠空白后原样返回
func NormalizeElectionType(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	key := strings.ToLower(s)
	key = strings.TrimSuffix(key, " elections")
	key = strings.TrimSuffix(key, " election")
	for _, e := range ElectionTypes {
		if key == string(e) {
			return e.Label()
		}
	}
	return s
}
