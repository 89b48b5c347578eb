package bitbucket

// Page is the paged envelope of Bitbucket Server list endpoints
type Page[T any] struct {
	Size          int  `json:"size"`
	Limit         int  `json:"limit"`
	Start         int  `json:"start"`
	IsLastPage    bool `json:"isLastPage"`
	NextPageStart int  `json:"nextPageStart"`
	Values        []T  `json:"values"`
}

// Repo is a partial Bitbucket Server repository document
type Repo struct {
	ID       int64   `json:"id"`
	Slug     string  `json:"slug"`
	Name     string  `json:"name"`
	Public   bool    `json:"public"`
	Archived bool    `json:"archived"`
	Project  Project `json:"project"`
	Origin   *Repo   `json:"origin,omitempty"`
	Links    Links   `json:"links"`
}

// Project is a partial Bitbucket Server project document
type Project struct {
	ID     int64  `json:"id"`
	Key    string `json:"key"`
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

// Links holds the clone and self links of a repository
type Links struct {
	Clone []Link `json:"clone"`
	Self  []Link `json:"self"`
}

// Link is a named href
type Link struct {
	Href string `json:"href"`
	Name string `json:"name"`
}

// Private reports whether neither the repository nor its project is public
func (r Repo) Private() bool { return !(r.Public || r.Project.Public) }

// Fork reports whether the repository was forked from another one
func (r Repo) Fork() bool { return r.Origin != nil }

// CloneURL returns the http(s) clone link, falling back to ssh
func (r Repo) CloneURL() string {
	var ssh string
	for _, l := range r.Links.Clone {
		switch l.Name {
		case "http", "https":
			return l.Href
		case "ssh":
			ssh = l.Href
		}
	}
	return ssh
}
