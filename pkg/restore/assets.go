package restore

import (
	"path"
	"sort"
	"strings"

	"github.com/glorpus-work/librestore/pkg/framework"
)

// placeholder marks a framework folder that is supported but deliberately empty.
const placeholder = "_._"

// Assets are the files of an installed library that a target consumes, as slash
// separated paths relative to the install directory.
type Assets struct {
	Runtime []string
	Compile []string
	Native  []string
}

// SelectAssets picks from files the nearest lib/<tfm>/ folder as runtime assets, the
// nearest ref/<tfm>/ folder as compile assets (falling back to the runtime assets) and
// runtimes/<rid>/native/ as native assets. Files directly under lib/ apply to any framework.
func SelectAssets(files []string, target framework.Framework, rid string) Assets {
	var a Assets
	a.Runtime = nearestFolder(files, "lib", target)
	if ref, ok := folderFiles(files, "ref", target); ok {
		a.Compile = ref
	} else {
		a.Compile = a.Runtime
	}
	if rid != "" {
		prefix := "runtimes/" + strings.ToLower(rid) + "/native/"
		for _, f := range files {
			if strings.HasPrefix(strings.ToLower(f), prefix) && path.Base(f) != placeholder {
				a.Native = append(a.Native, f)
			}
		}
		sort.Strings(a.Native)
	}
	return a
}

func nearestFolder(files []string, root string, target framework.Framework) []string {
	out, _ := folderFiles(files, root, target)
	return out
}

// folderFiles returns the files of the nearest framework folder under root. It reports
// false when root has no compatible folder.
func folderFiles(files []string, root string, target framework.Framework) ([]string, bool) {
	byFolder := make(map[string][]string)
	for _, f := range files {
		parts := strings.Split(f, "/")
		if !strings.EqualFold(parts[0], root) {
			continue
		}
		switch len(parts) {
		case 2:
			byFolder[""] = append(byFolder[""], f)
		case 3:
			byFolder[parts[1]] = append(byFolder[parts[1]], f)
		}
	}
	if len(byFolder) == 0 {
		return nil, false
	}

	folders := make([]string, 0, len(byFolder))
	for name := range byFolder {
		if _, err := framework.Parse(name); err == nil {
			folders = append(folders, name)
		}
	}
	sort.Strings(folders)

	best, ok := framework.GetNearest(folders, target, framework.MustParse)
	if !ok {
		return nil, false
	}
	var out []string
	for _, f := range byFolder[best] {
		if path.Base(f) != placeholder {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out, true
}
