package crawler

import "strconv"

// textureJob is one unit of crawl work: a single texture ID.
type textureJob struct {
	ID int
}

// Label is the identifier used in logs and progress reporting.
func (j textureJob) Label() string {
	return strconv.Itoa(j.ID)
}
