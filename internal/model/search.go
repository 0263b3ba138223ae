package model

// SearchQuery 语义搜索请求
type SearchQuery struct {
	Prompt string `form:"prompt" json:"prompt"`
	Limit  int    `form:"limit" json:"limit"`
}

// SearchResult 语义搜索结果，只保留 title/overview/genres
type SearchResult struct {
	Title    string   `json:"title"`
	Overview string   `json:"overview"`
	Genres   []string `json:"genres"`
}

// SearchResponse GET /movies/semantic-search 响应体
type SearchResponse struct {
	Movies []SearchResult `json:"movies"`
}

// VectorQuery 向量检索请求：索引名、目标字段、查询向量、候选池大小、返回条数
type VectorQuery struct {
	Index         string
	Path          string
	Vector        []float32
	NumCandidates int
	Limit         int
}

// ProjectSearchResult 将完整记录裁剪为搜索结果
func ProjectSearchResult(m *Movie) SearchResult {
	genres := []string(m.Genres)
	if genres == nil {
		genres = []string{}
	}
	return SearchResult{
		Title:    m.Title,
		Overview: m.Overview,
		Genres:   genres,
	}
}
