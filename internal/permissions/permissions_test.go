package permissions

import "testing"

func TestDeriveLevelFullAccess(t *testing.T) {
	info := BucketInfo{CanRead: true, CanWrite: true, CanList: true}
	if got := deriveLevel(info); got != FullAccess {
		t.Errorf("deriveLevel = %v, want full_access", got)
	}
}

func TestDeriveLevelReadWriteWithoutList(t *testing.T) {
	info := BucketInfo{CanRead: true, CanWrite: true}
	if got := deriveLevel(info); got != ReadWrite {
		t.Errorf("deriveLevel = %v, want read_write", got)
	}
}

func TestDeriveLevelReadOnly(t *testing.T) {
	info := BucketInfo{CanRead: true, CanList: true}
	if got := deriveLevel(info); got != ReadOnly {
		t.Errorf("deriveLevel = %v, want read_only", got)
	}
}

func TestDeriveLevelListOnly(t *testing.T) {
	info := BucketInfo{CanList: true}
	if got := deriveLevel(info); got != ListOnly {
		t.Errorf("deriveLevel = %v, want list_only", got)
	}
}

func TestDeriveLevelNoAccess(t *testing.T) {
	if got := deriveLevel(BucketInfo{}); got != NoAccess {
		t.Errorf("deriveLevel = %v, want no_access", got)
	}
}

func TestRecommendScoresNameTokenAndAccessLevel(t *testing.T) {
	infos := map[string]BucketInfo{
		"team-quilt-registry": {Level: FullAccess},
		"team-scratch":        {Level: ReadWrite},
		"other-bucket":        {Level: NoAccess},
	}
	scores := Recommend(infos, "team-source", "")

	if len(scores) == 0 || scores[0].Bucket != "team-quilt-registry" {
		t.Fatalf("expected the registry-named full-access bucket to rank first, got %+v", scores)
	}
	if scores[0].Score <= scores[len(scores)-1].Score {
		t.Errorf("expected descending score order, got %+v", scores)
	}
}

func TestRecommendSharedHyphenTokenBoostsScore(t *testing.T) {
	infos := map[string]BucketInfo{
		"acme-data": {Level: NoAccess},
		"unrelated": {Level: NoAccess},
	}
	scores := Recommend(infos, "acme-source", "")
	var acmeScore, unrelatedScore int
	for _, s := range scores {
		switch s.Bucket {
		case "acme-data":
			acmeScore = s.Score
		case "unrelated":
			unrelatedScore = s.Score
		}
	}
	if acmeScore <= unrelatedScore {
		t.Errorf("expected shared hyphen-token bucket to outscore unrelated bucket: acme=%d unrelated=%d", acmeScore, unrelatedScore)
	}
}

func TestRecommendTopThreeOnly(t *testing.T) {
	infos := map[string]BucketInfo{
		"a": {Level: FullAccess}, "b": {Level: FullAccess},
		"c": {Level: FullAccess}, "d": {Level: FullAccess},
	}
	scores := Recommend(infos, "", "")
	if len(scores) != 3 {
		t.Fatalf("expected at most 3 recommendations, got %d", len(scores))
	}
}

func TestRecommendContextHintBoostsScore(t *testing.T) {
	infos := map[string]BucketInfo{
		"genomics-data": {Level: NoAccess},
		"other-data":    {Level: NoAccess},
	}
	scores := Recommend(infos, "", "genomics")
	var genomicsScore, otherScore int
	for _, s := range scores {
		switch s.Bucket {
		case "genomics-data":
			genomicsScore = s.Score
		case "other-data":
			otherScore = s.Score
		}
	}
	if genomicsScore <= otherScore {
		t.Errorf("expected context-hint match to outscore non-match: genomics=%d other=%d", genomicsScore, otherScore)
	}
}
