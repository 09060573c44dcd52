package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/website"
)

type websiteRepository struct {
	db *DB
}

var _ website.Repository = (*websiteRepository)(nil)

func NewWebsiteRepository(db *DB) *websiteRepository {
	return &websiteRepository{db: db}
}

func (repo *websiteRepository) contributor(c website.Contributor) website.Contributor {
	c.FullName = repo.db.userFullName(c.UserID)
	return c
}

func (repo *websiteRepository) member(m website.HallOfFameMember) website.HallOfFameMember {
	m.FullName = repo.db.userFullName(m.UserID)
	return m
}

func (repo *websiteRepository) CreateContributor(_ context.Context, c website.Contributor) (website.Contributor, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	c.ID = 0
	return repo.contributor(repo.db.contributors.insert(c)), nil
}

func (repo *websiteRepository) GetContributor(_ context.Context, id int) (website.Contributor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if c, ok := repo.db.contributors.get(id); ok {
		return repo.contributor(c), nil
	}
	return website.Contributor{}, website.ErrContributorNotFound
}

func (repo *websiteRepository) QueryContributors(context.Context) ([]website.Contributor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	contributors := repo.db.contributors.all()
	for i := range contributors {
		contributors[i] = repo.contributor(contributors[i])
	}
	return contributors, nil
}

func (repo *websiteRepository) UpdateContributor(_ context.Context, c website.Contributor) (website.Contributor, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.contributors.get(c.ID); !ok {
		return website.Contributor{}, website.ErrContributorNotFound
	}
	return repo.contributor(repo.db.contributors.insert(c)), nil
}

func (repo *websiteRepository) DeleteContributors(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.contributors.delete(ids...), nil
}

func (repo *websiteRepository) CreateMember(_ context.Context, m website.HallOfFameMember) (website.HallOfFameMember, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	m.ID = 0
	return repo.member(repo.db.members.insert(m)), nil
}

func (repo *websiteRepository) GetMember(_ context.Context, id int) (website.HallOfFameMember, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if m, ok := repo.db.members.get(id); ok {
		return repo.member(m), nil
	}
	return website.HallOfFameMember{}, website.ErrMemberNotFound
}

func (repo *websiteRepository) QueryMembers(context.Context) ([]website.HallOfFameMember, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	members := repo.db.members.all()
	sort.SliceStable(members, func(i, j int) bool { return members[i].Order < members[j].Order })
	for i := range members {
		members[i] = repo.member(members[i])
	}
	return members, nil
}

func (repo *websiteRepository) UpdateMember(_ context.Context, m website.HallOfFameMember) (website.HallOfFameMember, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.members.get(m.ID); !ok {
		return website.HallOfFameMember{}, website.ErrMemberNotFound
	}
	return repo.member(repo.db.members.insert(m)), nil
}

func (repo *websiteRepository) DeleteMembers(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.members.delete(ids...), nil
}

func (repo *websiteRepository) ReorderMembers(_ context.Context, ids []int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for i, id := range ids {
		if m, ok := repo.db.members.rows[id]; ok {
			m.Order = i + 1
		}
	}
	return nil
}
