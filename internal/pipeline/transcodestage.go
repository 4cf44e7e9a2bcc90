package pipeline

import (
	"github.com/ruscorpora/reposplit/internal/cache"
	"github.com/ruscorpora/reposplit/internal/objhash"
	"github.com/ruscorpora/reposplit/internal/transcode"
)

// transcodeJob is one unit of transcoding work: a single source blob and
// every output repo that references it.
type transcodeJob struct {
	hash  objhash.Hash
	repos []string
}

// runTranscode implements the transcoding stage: every collected blob is
// read and normalized exactly once, then its translated bytes are written
// into every output repo that referenced it (spec.md §4.3, §5).
func (p *Pipeline) runTranscode(collected map[objhash.Hash]map[string]struct{}) error {
	jobs := make([]transcodeJob, 0, len(collected))
	for hash, repos := range collected {
		list := make([]string, 0, len(repos))
		for r := range repos {
			list = append(list, r)
		}
		jobs = append(jobs, transcodeJob{hash: hash, repos: list})
	}

	pool := newPool(workerCount(32), p.transcodeOne)

	for _, err := range pool.run(jobs) {
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) transcodeOne(j transcodeJob) error {
	_, payload, err := p.source.Read(j.hash)
	if err != nil {
		return err
	}

	label := transcode.Detect(payload)
	out, err := transcode.Transcode(label, payload)
	if err != nil {
		return err
	}

	for _, repo := range j.repos {
		store, ok := p.outputs[repo]
		if !ok {
			p.log.Warn("pipeline: transcode target repo has no output store, skipping", "repo", repo)
			continue
		}
		newHash, err := store.Write(objhash.TypeBlob, out)
		if err != nil {
			return err
		}
		p.caches.FileCache.SetIfAbsent(cache.RepoHashKey{Repo: repo, Hash: j.hash}, newHash)
		if p.shamap != nil {
			if err := p.shamap.WriteLine(j.hash, len(j.repos), repo, &newHash); err != nil {
				return err
			}
		}
	}
	return nil
}
