package commit

import (
	"fmt"

	"github.com/jeffrom/tagnotes/model"
)

type InsufficientTagsError struct {
	Count int
}

func (e InsufficientTagsError) Error() string {
	return fmt.Sprintf("commit: need at least 2 tags to compare, found %d", e.Count)
}

func (e InsufficientTagsError) Is(other error) bool {
	_, ok := other.(InsufficientTagsError)
	return ok
}

type TagNotFoundError struct {
	Name string
}

func (e TagNotFoundError) Error() string {
	return fmt.Sprintf("commit: tag %q not found", e.Name)
}

func (e TagNotFoundError) Is(other error) bool {
	_, ok := other.(TagNotFoundError)
	return ok
}

// NoPriorTagError means the requested tag is the oldest one.
type NoPriorTagError struct {
	Name string
}

func (e NoPriorTagError) Error() string {
	return fmt.Sprintf("commit: no tag older than %q", e.Name)
}

func (e NoPriorTagError) Is(other error) bool {
	_, ok := other.(NoPriorTagError)
	return ok
}

// NoNextTagError means the requested tag is the newest one.
type NoNextTagError struct {
	Name string
}

func (e NoNextTagError) Error() string {
	return fmt.Sprintf("commit: no tag newer than %q", e.Name)
}

func (e NoNextTagError) Is(other error) bool {
	_, ok := other.(NoNextTagError)
	return ok
}

type InvalidTagOrderError struct {
	FromTag string
	ToTag   string
}

func (e InvalidTagOrderError) Error() string {
	return fmt.Sprintf("commit: tag %q must be older than %q", e.FromTag, e.ToTag)
}

func (e InvalidTagOrderError) Is(other error) bool {
	_, ok := other.(InvalidTagOrderError)
	return ok
}

// IndexOf returns the position of the tag named name, or -1.
func IndexOf(tags []model.Tag, name string) int {
	for i, t := range tags {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// Resolve picks the (older, newer) pair to compare from tags, which must be
// ordered newest first. Empty names are filled in from the neighbouring tag.
func Resolve(fromTag, toTag string, tags []model.Tag) (model.TagPair, error) {
	switch {
	case fromTag == "" && toTag == "":
		if len(tags) < 2 {
			return model.TagPair{}, InsufficientTagsError{Count: len(tags)}
		}
		return model.TagPair{FromTag: tags[1].Name, ToTag: tags[0].Name}, nil

	case fromTag == "":
		i := IndexOf(tags, toTag)
		if i < 0 {
			return model.TagPair{}, TagNotFoundError{Name: toTag}
		}
		if i+1 >= len(tags) {
			return model.TagPair{}, NoPriorTagError{Name: toTag}
		}
		return model.TagPair{FromTag: tags[i+1].Name, ToTag: toTag}, nil

	case toTag == "":
		i := IndexOf(tags, fromTag)
		if i < 0 {
			return model.TagPair{}, TagNotFoundError{Name: fromTag}
		}
		if i == 0 {
			return model.TagPair{}, NoNextTagError{Name: fromTag}
		}
		return model.TagPair{FromTag: fromTag, ToTag: tags[i-1].Name}, nil
	}

	fi := IndexOf(tags, fromTag)
	if fi < 0 {
		return model.TagPair{}, TagNotFoundError{Name: fromTag}
	}
	ti := IndexOf(tags, toTag)
	if ti < 0 {
		return model.TagPair{}, TagNotFoundError{Name: toTag}
	}
	if fi <= ti {
		return model.TagPair{}, InvalidTagOrderError{FromTag: fromTag, ToTag: toTag}
	}
	return model.TagPair{FromTag: fromTag, ToTag: toTag}, nil
}
