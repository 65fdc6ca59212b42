package git

import (
	"errors"
	"fmt"
	"sort"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog/log"
)

// tagRef is a tag reference peeled to its commit before the commit graph
// is built.
type tagRef struct {
	name       plumbing.ReferenceName
	target     plumbing.Hash // what the reference points at
	peeled     plumbing.Hash // commit reached through every tag level
	annotation *object.Tag   // outermost annotation, nil for lightweight tags
}

// tagRefs returns every tag that peels to a commit, sorted by name. Tags of
// trees or blobs are skipped.
func (r *GoGitRepository) tagRefs() ([]tagRef, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	var tags []tagRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		t, ok, err := r.peelTag(ref)
		if err != nil {
			return err
		}
		if !ok {
			log.Debug().Str("tag", ref.Name().Short()).Msg("skipping tag that does not point to a commit")
			return nil
		}
		tags = append(tags, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].name < tags[j].name })
	return tags, nil
}

func (r *GoGitRepository) peelTag(ref *plumbing.Reference) (tagRef, bool, error) {
	t := tagRef{name: ref.Name(), target: ref.Hash()}

	tagObj, err := r.repo.TagObject(ref.Hash())
	switch {
	case errors.Is(err, plumbing.ErrObjectNotFound):
		// Lightweight tag: the reference names the commit itself.
		if _, err := r.repo.CommitObject(ref.Hash()); err != nil {
			return t, false, nil
		}
		t.peeled = ref.Hash()
		return t, true, nil
	case err != nil:
		return t, false, fmt.Errorf("reading tag %s: %w", ref.Name().Short(), err)
	}

	t.annotation = tagObj
	for obj := tagObj; ; {
		switch obj.TargetType {
		case plumbing.CommitObject:
			t.peeled = obj.Target
			return t, true, nil
		case plumbing.TagObject:
			obj, err = r.repo.TagObject(obj.Target)
			if err != nil {
				return t, false, graph.NewOpError("peel tag", ref.Name().Short(), graph.ErrMissingObject, err)
			}
		default:
			return t, false, nil
		}
	}
}

// resolve links the peeled tag to the interned commit graph.
func (t tagRef) resolve(store *graph.CommitStore) (*graph.Tag, error) {
	commit, err := store.Must(t.peeled.String())
	if err != nil {
		return nil, fmt.Errorf("resolving tag %s: %w", t.name.Short(), err)
	}

	tag := &graph.Tag{
		Name:         graph.NewReferenceName(string(t.name)),
		TargetSha:    t.target.String(),
		Target:       commit,
		PeeledTarget: commit,
	}
	if t.annotation != nil {
		tag.Message = t.annotation.Message
		tag.Author = &graph.Committer{
			Date:  t.annotation.Tagger.When,
			Name:  t.annotation.Tagger.Name,
			Email: t.annotation.Tagger.Email,
		}
	}
	return tag, nil
}
