package sortutil

import (
	"sort"
	"strings"

	"github.com/skaphos/fleetkeeper/internal/model"
)

// LessNamePath provides the product-wide display ordering: case-insensitive
// name first, then path for name collisions across checkouts.
func LessNamePath(nameI, pathI, nameJ, pathJ string) bool {
	li, lj := strings.ToLower(nameI), strings.ToLower(nameJ)
	if li == lj {
		return pathI < pathJ
	}
	return li < lj
}

// Repositories orders discovered repositories by name, then path.
func Repositories(repos []model.Repository) {
	sort.SliceStable(repos, func(i, j int) bool {
		return LessNamePath(repos[i].Name, repos[i].Path, repos[j].Name, repos[j].Path)
	})
}

// RepoRefs orders report detail rows by name, then path.
func RepoRefs(refs []model.RepoRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		return LessNamePath(refs[i].Name, refs[i].Path, refs[j].Name, refs[j].Path)
	})
}

// SubrepoStatuses orders drift groups worst-first: ascending sync score,
// then name for equal scores.
func SubrepoStatuses(statuses []model.SubrepoStatus) {
	sort.SliceStable(statuses, func(i, j int) bool {
		if statuses[i].SyncScore == statuses[j].SyncScore {
			return statuses[i].Name < statuses[j].Name
		}
		return statuses[i].SyncScore < statuses[j].SyncScore
	})
}

// SubrepoInstances orders instances of one group by parent repository,
// then by location inside the parent.
func SubrepoInstances(instances []model.SubrepoInstance) {
	sort.SliceStable(instances, func(i, j int) bool {
		if instances[i].ParentRepo == instances[j].ParentRepo {
			return instances[i].RelativePath < instances[j].RelativePath
		}
		return instances[i].ParentRepo < instances[j].ParentRepo
	})
}
