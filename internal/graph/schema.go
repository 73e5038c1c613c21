package graph

import (
	"context"

	"github.com/graphql-go/graphql"
)

// Request is a decoded GraphQL HTTP request body.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "user",
	Fields: graphql.Fields{
		"id":         &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"email":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"first_name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"last_name":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"created_at": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"updated_at": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
	},
})

var batchPayloadType = graphql.NewObject(graphql.ObjectConfig{
	Name: "BatchPayload",
	Fields: graphql.Fields{
		"count": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var userWhereInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UserWhereInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":         &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"email":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"first_name": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"last_name":  &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var userWhereUniqueInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name:        "UserWhereUniqueInput",
	Description: "Exactly one of id or email.",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":    &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"email": &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var userUpdateInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UserUpdateInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"email":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"password":   &graphql.InputObjectFieldConfig{Type: graphql.String},
		"first_name": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"last_name":  &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var userUpdateManyInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UserUpdateManyMutationInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"password":   &graphql.InputObjectFieldConfig{Type: graphql.String},
		"first_name": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"last_name":  &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

func nonNullString() *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
}

// NewSchema builds the executable schema with r's resolvers bound.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"allUsers": &graphql.Field{
				Type:    graphql.NewList(userType),
				Resolve: r.allUsers,
			},
			"user": &graphql.Field{
				Type:        userType,
				Description: "The user owning the session cookie.",
				Resolve:     r.me,
			},
			"users": &graphql.Field{
				Type: graphql.NewList(userType),
				Args: graphql.FieldConfigArgument{
					"where": &graphql.ArgumentConfig{Type: userWhereInput},
					"skip":  &graphql.ArgumentConfig{Type: graphql.Int},
					"first": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: r.users,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"signup": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"email":      nonNullString(),
					"password":   nonNullString(),
					"first_name": nonNullString(),
					"last_name":  nonNullString(),
					"inviteCode": nonNullString(),
				},
				Resolve: r.signup,
			},
			"login": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"email":    nonNullString(),
					"password": nonNullString(),
				},
				Resolve: r.login,
			},
			"logout": &graphql.Field{
				Type:    graphql.Boolean,
				Resolve: r.logout,
			},
			"bigRedButton": &graphql.Field{
				Type:    graphql.String,
				Resolve: r.bigRedButton,
			},
			"deleteOneuser": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"where": &graphql.ArgumentConfig{Type: graphql.NewNonNull(userWhereUniqueInput)},
				},
				Resolve: r.deleteOne,
			},
			"deleteManyuser": &graphql.Field{
				Type: graphql.NewNonNull(batchPayloadType),
				Args: graphql.FieldConfigArgument{
					"where": &graphql.ArgumentConfig{Type: userWhereInput},
				},
				Resolve: r.deleteMany,
			},
			"updateOneuser": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"data":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(userUpdateInput)},
					"where": &graphql.ArgumentConfig{Type: graphql.NewNonNull(userWhereUniqueInput)},
				},
				Resolve: r.updateOne,
			},
			"updateManyuser": &graphql.Field{
				Type: graphql.NewNonNull(batchPayloadType),
				Args: graphql.FieldConfigArgument{
					"data":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(userUpdateManyInput)},
					"where": &graphql.ArgumentConfig{Type: userWhereInput},
				},
				Resolve: r.updateMany,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
}

type variablesKey struct{}

// requestVariables returns the variables as the client sent them, before
// coercion removed null entries.
func requestVariables(ctx context.Context) map[string]interface{} {
	vars, _ := ctx.Value(variablesKey{}).(map[string]interface{})
	return vars
}

// Execute runs req against schema within the given exchange.
func Execute(ctx context.Context, schema graphql.Schema, ex Exchange, req Request) *graphql.Result {
	ctx = context.WithValue(WithExchange(ctx, ex), variablesKey{}, req.Variables)
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}
