package dispatch

import "strings"

// DefaultFileTypes：限定搜索结果的文档类型
var DefaultFileTypes = []string{"pdf", "csv", "txt"}

// BuildQuery：组装搜索串 "<location> <Election Type> Voter Turnout (filetype:pdf OR ...)"
// 约束：调用方保证两个输入非空；不做转义，由搜索客户端负责 URL 编码
func BuildQuery(location, electionType string, fileTypes ...string) string {
	if len(fileTypes) == 0 {
		fileTypes = DefaultFileTypes
	}
	ft := make([]string, 0, len(fileTypes))
	for _, t := range fileTypes {
		ft = append(ft, "filetype:"+t)
	}
	loc := strings.Join(strings.Fields(location), " ")
	return loc + " " + NormalizeElectionType(electionType) + " Voter Turnout (" + strings.Join(ft, " OR ") + ")"
}
