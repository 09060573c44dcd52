package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/core/website"
)

type websiteRepository struct {
	db *sqlx.DB
}

var _ website.Repository = (*websiteRepository)(nil)

func NewWebsiteRepository(db *sqlx.DB) *websiteRepository {
	return &websiteRepository{db: db}
}

// userName holds the columns needed to display the user of an entry.
type userName struct {
	LastName   string      `db:"last_name"`
	FirstName  string      `db:"first_name"`
	MiddleName null.String `db:"middle_name"`
}

func (n userName) String() string {
	return user.User{LastName: n.LastName, FirstName: n.FirstName, MiddleName: n.MiddleName}.FullName()
}

type contributorRow struct {
	website.Contributor
	userName
}

const contributorSelect = `SELECT c.id, c.user_id, c.contribution, c.url, c.photo, u.last_name, u.first_name, u.middle_name
	FROM website_contributor c JOIN users_user u ON u.id = c.user_id`

func (repo *websiteRepository) CreateContributor(ctx context.Context, c website.Contributor) (website.Contributor, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO website_contributor (user_id, contribution, url, photo)
		VALUES (:user_id, :contribution, :url, :photo) RETURNING id`, c)
	if err != nil {
		return website.Contributor{}, errors.Wrap(err, "inserting contributor")
	}
	return repo.GetContributor(ctx, id)
}

func (repo *websiteRepository) GetContributor(ctx context.Context, id int) (website.Contributor, error) {
	var row contributorRow
	if err := repo.db.GetContext(ctx, &row, contributorSelect+" WHERE c.id = $1", id); err != nil {
		return website.Contributor{}, trapNoRowsErr(err, website.ErrContributorNotFound, "getting contributor")
	}
	row.Contributor.FullName = row.userName.String()
	return row.Contributor, nil
}

func (repo *websiteRepository) QueryContributors(ctx context.Context) ([]website.Contributor, error) {
	var rows []contributorRow
	if err := repo.db.SelectContext(ctx, &rows, contributorSelect+" ORDER BY c.id"); err != nil {
		return nil, errors.Wrap(err, "querying contributors")
	}
	contributors := make([]website.Contributor, 0, len(rows))
	for _, row := range rows {
		row.Contributor.FullName = row.userName.String()
		contributors = append(contributors, row.Contributor)
	}
	return contributors, nil
}

func (repo *websiteRepository) UpdateContributor(ctx context.Context, c website.Contributor) (website.Contributor, error) {
	n, err := namedExec(ctx, repo.db, `UPDATE website_contributor SET user_id = :user_id, contribution = :contribution,
		url = :url, photo = :photo WHERE id = :id`, c)
	if err != nil {
		return website.Contributor{}, errors.Wrap(err, "updating contributor")
	}
	if n == 0 {
		return website.Contributor{}, website.ErrContributorNotFound
	}
	return repo.GetContributor(ctx, c.ID)
}

func (repo *websiteRepository) DeleteContributors(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM website_contributor WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting contributors")
}

type memberRow struct {
	website.HallOfFameMember
	userName
}

const memberSelect = `SELECT m.id, m.user_id, m.achievement, m.photo, m."order", u.last_name, u.first_name, u.middle_name
	FROM website_halloffamemember m JOIN users_user u ON u.id = m.user_id`

func (repo *websiteRepository) CreateMember(ctx context.Context, m website.HallOfFameMember) (website.HallOfFameMember, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO website_halloffamemember (user_id, achievement, photo, "order")
		VALUES (:user_id, :achievement, :photo, :order) RETURNING id`, m)
	if err != nil {
		return website.HallOfFameMember{}, errors.Wrap(err, "inserting hall of fame member")
	}
	return repo.GetMember(ctx, id)
}

func (repo *websiteRepository) GetMember(ctx context.Context, id int) (website.HallOfFameMember, error) {
	var row memberRow
	if err := repo.db.GetContext(ctx, &row, memberSelect+" WHERE m.id = $1", id); err != nil {
		return website.HallOfFameMember{}, trapNoRowsErr(err, website.ErrMemberNotFound, "getting hall of fame member")
	}
	row.HallOfFameMember.FullName = row.userName.String()
	return row.HallOfFameMember, nil
}

func (repo *websiteRepository) QueryMembers(ctx context.Context) ([]website.HallOfFameMember, error) {
	var rows []memberRow
	if err := repo.db.SelectContext(ctx, &rows, memberSelect+` ORDER BY m."order", m.id`); err != nil {
		return nil, errors.Wrap(err, "querying hall of fame members")
	}
	members := make([]website.HallOfFameMember, 0, len(rows))
	for _, row := range rows {
		row.HallOfFameMember.FullName = row.userName.String()
		members = append(members, row.HallOfFameMember)
	}
	return members, nil
}

func (repo *websiteRepository) UpdateMember(ctx context.Context, m website.HallOfFameMember) (website.HallOfFameMember, error) {
	n, err := namedExec(ctx, repo.db, `UPDATE website_halloffamemember SET user_id = :user_id, achievement = :achievement,
		photo = :photo, "order" = :order WHERE id = :id`, m)
	if err != nil {
		return website.HallOfFameMember{}, errors.Wrap(err, "updating hall of fame member")
	}
	if n == 0 {
		return website.HallOfFameMember{}, website.ErrMemberNotFound
	}
	return repo.GetMember(ctx, m.ID)
}

func (repo *websiteRepository) DeleteMembers(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM website_halloffamemember WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting hall of fame members")
}

func (repo *websiteRepository) ReorderMembers(ctx context.Context, ids []int) error {
	return reorder(ctx, repo.db, "website_halloffamemember", ids)
}
