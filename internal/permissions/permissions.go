// Package permissions discovers per-bucket access levels for an
// authenticated session, grounded on spec.md §4.3 and on the
// goroutine+channel+WaitGroup fan-out pattern of clanker's
// internal/aws/parallel.go (executeOperationsWithProfile).
package permissions

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/s3ops"
)

type Level string

const (
	NoAccess   Level = "no_access"
	ListOnly   Level = "list_only"
	ReadOnly   Level = "read_only"
	ReadWrite  Level = "read_write"
	FullAccess Level = "full_access"
)

// BucketInfo is one bucket's discovered access level.
type BucketInfo struct {
	Bucket    string
	CanList   bool
	CanRead   bool
	CanWrite  bool
	Level     Level
	Error     string
}

const defaultTTL = 5 * time.Minute
const probeTimeout = 5 * time.Second

type cacheEntry struct {
	info      map[string]BucketInfo
	expiresAt time.Time
}

// Discoverer probes buckets and caches results per spec.md §4.3 step 5,
// keyed by identity ARN and the requested bucket list.
type Discoverer struct {
	s3          *s3ops.Client
	allowWriteProbe bool
	ttl         time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewDiscoverer(s3Client *s3ops.Client, allowWriteProbe bool) *Discoverer {
	return &Discoverer{s3: s3Client, allowWriteProbe: allowWriteProbe, ttl: defaultTTL, cache: make(map[string]cacheEntry)}
}

// Identity returns the caller identity ARN, step 1 of spec.md §4.3; also
// the basis for the "at least one AWS identity must be resolvable"
// invariant of spec.md §3.2.
func Identity(ctx context.Context, stsClient *sts.Client) (string, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", apperr.Wrap(apperr.Authentication, "unable to resolve AWS identity", err)
	}
	if out.Arn == nil {
		return "", apperr.New(apperr.Authentication, "AWS identity has no ARN")
	}
	return *out.Arn, nil
}

// Discover probes every candidate bucket concurrently, one goroutine per
// bucket fanning results back over a buffered channel, matching
// executeOperationsWithProfile's shape.
func (d *Discoverer) Discover(ctx context.Context, identityARN string, buckets []string) map[string]BucketInfo {
	key := identityARN + "\x00" + strings.Join(buckets, ",")
	d.mu.Lock()
	if entry, ok := d.cache[key]; ok && time.Now().Before(entry.expiresAt) {
		d.mu.Unlock()
		return entry.info
	}
	d.mu.Unlock()

	type indexed struct {
		index int
		info  BucketInfo
	}

	resultChan := make(chan indexed, len(buckets))
	var wg sync.WaitGroup

	for i, bucket := range buckets {
		wg.Add(1)
		go func(index int, bucket string) {
			defer wg.Done()
			resultChan <- indexed{index: index, info: d.probeBucket(ctx, bucket)}
		}(i, bucket)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make(map[string]BucketInfo, len(buckets))
	for r := range resultChan {
		results[r.info.Bucket] = r.info
	}

	d.mu.Lock()
	d.cache[key] = cacheEntry{info: results, expiresAt: time.Now().Add(d.ttl)}
	d.mu.Unlock()

	return results
}

func (d *Discoverer) probeBucket(parent context.Context, bucket string) BucketInfo {
	ctx, cancel := context.WithTimeout(parent, probeTimeout)
	defer cancel()

	info := BucketInfo{Bucket: bucket}

	if err := d.s3.HeadBucket(ctx, bucket); err != nil {
		info.Level = NoAccess
		info.Error = err.Error()
		return info
	}

	entries, err := d.s3.ListObjects(ctx, bucket, "", "", 1)
	if err == nil {
		info.CanList = true
	}

	if info.CanList {
		key := ".quilt_test_read_probe"
		if len(entries) > 0 && !entries[0].IsPrefix {
			key = entries[0].Key
		}
		if _, _, err := d.s3.GetObject(ctx, bucket, key, "bytes=0-0"); err == nil {
			info.CanRead = true
		}
	}

	if d.allowWriteProbe {
		probeKey := ".quilt_test_write"
		if err := d.s3.PutObject(ctx, bucket, probeKey, []byte{}, ""); err == nil {
			info.CanWrite = true
			_ = d.s3.DeleteObject(ctx, bucket, probeKey)
		}
	}

	info.Level = deriveLevel(info)
	return info
}

func deriveLevel(info BucketInfo) Level {
	switch {
	case info.CanRead && info.CanWrite && info.CanList:
		return FullAccess
	case info.CanRead && info.CanWrite:
		return ReadWrite
	case info.CanRead && info.CanList:
		return ReadOnly
	case info.CanList:
		return ListOnly
	default:
		return NoAccess
	}
}

// RecommendationScore implements spec.md §4.3's "best target bucket for
// package creation" scoring.
type RecommendationScore struct {
	Bucket string
	Score  int
}

var packageNameTokens = []string{"package", "registry", "quilt"}

// Recommend scores candidate buckets for use as a package-creation target,
// given the source bucket (to reward shared hyphen-separated tokens) and an
// optional department/project hint.
func Recommend(infos map[string]BucketInfo, sourceBucket, contextHint string) []RecommendationScore {
	var scores []RecommendationScore
	for bucket, info := range infos {
		score := 0
		lower := strings.ToLower(bucket)
		for _, token := range packageNameTokens {
			if strings.Contains(lower, token) {
				score += 50
				break
			}
		}
		if sourceBucket != "" && sharesHyphenToken(bucket, sourceBucket) {
			score += 30
		}
		switch info.Level {
		case FullAccess:
			score += 20
		case ReadWrite:
			score += 10
		}
		if contextHint != "" && strings.Contains(lower, strings.ToLower(contextHint)) {
			score += 25
		}
		scores = append(scores, RecommendationScore{Bucket: bucket, Score: score})
	}

	sortDescending(scores)
	if len(scores) > 3 {
		scores = scores[:3]
	}
	return scores
}

func sharesHyphenToken(a, b string) bool {
	aTokens := strings.Split(a, "-")
	bTokens := strings.Split(b, "-")
	bSet := make(map[string]bool, len(bTokens))
	for _, t := range bTokens {
		bSet[t] = true
	}
	for _, t := range aTokens {
		if bSet[t] {
			return true
		}
	}
	return false
}

func sortDescending(scores []RecommendationScore) {
	for i := 1; i < len(scores); i++ {
		for j := i; j > 0 && scores[j].Score > scores[j-1].Score; j-- {
			scores[j], scores[j-1] = scores[j-1], scores[j]
		}
	}
}
