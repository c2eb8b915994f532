package filetree

import (
	"reflect"
	"testing"
	"time"
)

func sampleForest() []*Node {
	return []*Node{
		{Name: "src", Path: "/p/src", Kind: KindDirectory, IsLoaded: true, Children: []*Node{
			{Name: "lib", Path: "/p/src/lib", Kind: KindDirectory},
			NewFile("/p/src/main.ts", 10, time.Time{}),
		}},
		NewFile("/p/README.md", 20, time.Time{}),
	}
}

func Test_Find_NestedAndMissing(t *testing.T) {
	roots := sampleForest()

	tests := []struct {
		path  string
		found bool
	}{
		{"/p/src", true},
		{"/p/src/main.ts", true},
		{"/p/src/lib", true},
		{"/p/README.md", true},
		{"/p/nope", false},
	}
	for _, tt := range tests {
		node := Find(roots, tt.path)
		if (node != nil) != tt.found {
			t.Errorf("Find(%q) found=%v, want %v", tt.path, node != nil, tt.found)
		}
	}
	if Find(nil, "/p") != nil {
		t.Error("Find on empty forest should return nil")
	}
}

func Test_ReplaceChildren_SetsLoadedAndLeavesSiblings(t *testing.T) {
	roots := sampleForest()
	readmeBefore := roots[1].Clone()

	ok := ReplaceChildren(roots, "/p/src/lib", []*Node{NewFile("/p/src/lib/a.ts", 1, time.Time{})})
	if !ok {
		t.Fatal("expected ReplaceChildren to find /p/src/lib")
	}

	lib := Find(roots, "/p/src/lib")
	if !lib.IsLoaded {
		t.Error("expected lib to be marked loaded")
	}
	if len(lib.Children) != 1 || lib.Children[0].Path != "/p/src/lib/a.ts" {
		t.Errorf("unexpected children: %+v", lib.Children)
	}
	if !reflect.DeepEqual(roots[1], readmeBefore) {
		t.Error("expected README.md to be untouched")
	}
}

func Test_ReplaceChildren_NilBecomesEmptyLoaded(t *testing.T) {
	roots := sampleForest()
	if !ReplaceChildren(roots, "/p/src/lib", nil) {
		t.Fatal("expected directory to be found")
	}
	lib := Find(roots, "/p/src/lib")
	if lib.Children == nil || len(lib.Children) != 0 {
		t.Errorf("expected non-nil empty children, got %#v", lib.Children)
	}
}

func Test_ReplaceChildren_RefusesFilesAndMissing(t *testing.T) {
	roots := sampleForest()
	if ReplaceChildren(roots, "/p/README.md", []*Node{}) {
		t.Error("expected files to be refused as patch targets")
	}
	if ReplaceChildren(roots, "/p/gone", []*Node{}) {
		t.Error("expected missing path to report false")
	}
}

func Test_RemoveReinsert_RestoresPosition(t *testing.T) {
	roots := sampleForest()

	roots, removal, ok := Remove(roots, "/p/src/lib")
	if !ok {
		t.Fatal("expected removal")
	}
	if removal.ParentPath != "/p/src" || removal.Index != 0 {
		t.Errorf("unexpected removal record: %+v", removal)
	}
	if Find(roots, "/p/src/lib") != nil {
		t.Fatal("expected node to be gone")
	}

	roots, ok = Reinsert(roots, removal)
	if !ok {
		t.Fatal("expected reinsert to succeed")
	}
	src := Find(roots, "/p/src")
	if src.Children[0].Path != "/p/src/lib" || src.Children[1].Path != "/p/src/main.ts" {
		t.Errorf("expected original order restored, got %s, %s", src.Children[0].Path, src.Children[1].Path)
	}
}

func Test_RemoveReinsert_TopLevel(t *testing.T) {
	roots := sampleForest()

	roots, removal, ok := Remove(roots, "/p/README.md")
	if !ok || len(roots) != 1 {
		t.Fatalf("expected top-level removal, ok=%v len=%d", ok, len(roots))
	}
	if removal.ParentPath != "" || removal.Index != 1 {
		t.Errorf("unexpected removal record: %+v", removal)
	}

	roots, ok = Reinsert(roots, removal)
	if !ok || len(roots) != 2 || roots[1].Path != "/p/README.md" {
		t.Errorf("expected README.md back at index 1, got %d roots", len(roots))
	}
}

func Test_Reinsert_RefusesDuplicate(t *testing.T) {
	roots := sampleForest()
	roots, removal, _ := Remove(roots, "/p/src/main.ts")
	ReplaceChildren(roots, "/p/src", []*Node{NewFile("/p/src/main.ts", 10, time.Time{})})

	_, ok := Reinsert(roots, removal)
	if ok {
		t.Error("expected reinsert to refuse an already present path")
	}
}

func Test_Remove_Missing(t *testing.T) {
	roots := sampleForest()
	after, _, ok := Remove(roots, "/p/none")
	if ok {
		t.Error("expected ok=false for missing path")
	}
	if len(after) != len(roots) {
		t.Error("expected forest unchanged")
	}
}

func Test_Sort_DirectoriesFirstCaseSensitive(t *testing.T) {
	nodes := []*Node{
		NewFile("/p/b.txt", 0, time.Time{}),
		NewDirectory("/p/zeta", time.Time{}),
		NewFile("/p/B.txt", 0, time.Time{}),
		NewDirectory("/p/alpha", time.Time{}),
	}
	Sort(nodes)

	want := []string{"alpha", "zeta", "B.txt", "b.txt"}
	for i, name := range want {
		if nodes[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, nodes[i].Name)
		}
	}
}

func Test_IsWithin(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/a/x.txt", "/a", true},
		{"/a", "/a", true},
		{"/ab/x.txt", "/a", false},
		{"/b/y.txt", "/a", false},
		{"/a/x.txt", "", false},
	}
	for _, tt := range tests {
		if got := IsWithin(tt.path, tt.root); got != tt.want {
			t.Errorf("IsWithin(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
		}
	}
}

func Test_Clone_IsDeep(t *testing.T) {
	roots := sampleForest()
	copied := CloneAll(roots)
	copied[0].Children[0].Name = "changed"
	*copied[1].Size = 999

	if roots[0].Children[0].Name != "lib" {
		t.Error("clone shares child nodes with original")
	}
	if *roots[1].Size != 20 {
		t.Error("clone shares size pointer with original")
	}
	if Count(roots) != 4 {
		t.Errorf("expected 4 loaded nodes, got %d", Count(roots))
	}
}
