package query

import (
	"regexp"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/docuvault/docuvault-server/internal/model"
)

// Document-store field names referenced by rendered criteria.
const (
	fieldOwner     = "user_id"
	fieldWorkspace = "workspace"
	fieldKind      = "kind"
	fieldTitle     = "title"
)

// BSON renders the criteria as a document-store filter. The produced
// structure is semantically equivalent to the SQL rendering of the same
// criteria.
func BSON(c Criteria) bson.M {
	switch n := c.(type) {
	case nil:
		return bson.M{}
	case All:
		return bson.M{}
	case And:
		return junctionBSON([]Criteria(n), "$and", bson.M{})
	case Or:
		return junctionBSON([]Criteria(n), "$or", matchNothing())
	case OwnerIs:
		return bson.M{fieldOwner: n.User.String()}
	case OwnerIn:
		owners := make([]string, len(n.Users))
		for i, u := range n.Users {
			owners[i] = u.String()
		}
		return bson.M{fieldOwner: bson.M{"$in": owners}}
	case WorkspaceIn:
		return workspaceInBSON(n)
	case KindIs:
		return bson.M{fieldKind: string(n.Kind)}
	case TitleContains:
		// Quote the text so it matches literally, like ILIKE on the SQL side.
		return bson.M{fieldTitle: bson.M{"$regex": regexp.QuoteMeta(n.Text), "$options": "i"}}
	default:
		return matchNothing()
	}
}

// AddAggregateAccessCriteria rewrites an aggregation pipeline so that it only
// sees documents the principal may read. The access restriction is merged
// into the pipeline's leading $match stage when one is present, otherwise a
// new $match stage is prepended. Superusers without explicit filters get the
// pipeline back unchanged.
func AddAggregateAccessCriteria(
	pipeline []bson.M,
	principal model.Principal,
	accessibleWorkspaces []uuid.UUID,
	workspaceFilter []*uuid.UUID,
	userFilter []model.UserID,
) ([]bson.M, error) {
	access, err := AccessibleCriteria(principal, accessibleWorkspaces, workspaceFilter, userFilter)
	if err != nil {
		return nil, err
	}
	if isAll(access) {
		return pipeline, nil
	}
	accessMatch := BSON(access)

	if len(pipeline) > 0 {
		if existing, ok := pipeline[0]["$match"].(bson.M); ok {
			merged := bson.M{"$and": bson.A{existing, accessMatch}}
			rewritten := make([]bson.M, len(pipeline))
			copy(rewritten, pipeline)
			rewritten[0] = bson.M{"$match": merged}
			return rewritten, nil
		}
	}

	rewritten := make([]bson.M, 0, len(pipeline)+1)
	rewritten = append(rewritten, bson.M{"$match": accessMatch})
	return append(rewritten, pipeline...), nil
}

func junctionBSON(children []Criteria, op string, empty bson.M) bson.M {
	if len(children) == 0 {
		return empty
	}
	parts := make(bson.A, len(children))
	for i, child := range children {
		parts[i] = BSON(child)
	}
	return bson.M{op: parts}
}

func workspaceInBSON(n WorkspaceIn) bson.M {
	// A null member of $in matches documents with no workspace set.
	members := make(bson.A, 0, len(n.IDs)+1)
	for _, id := range n.IDs {
		members = append(members, id.String())
	}
	if n.Unassigned {
		members = append(members, nil)
	}
	return bson.M{fieldWorkspace: bson.M{"$in": members}}
}

func matchNothing() bson.M {
	return bson.M{"_id": bson.M{"$in": bson.A{}}}
}
