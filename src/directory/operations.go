package directory

import "encoding/json"

// Operation names are sent as operationName with their persisted document.
const (
	OpGroupByInviteToken = "GroupByInviteToken"
	OpGetGroup           = "GetGroup"
	OpRequestJoinGroup   = "RequestJoinGroup"
	OpAcceptJoinRequest  = "AcceptJoinRequest"
	OpRejectJoinRequest  = "RejectJoinRequest"
	OpRemoveMember       = "RemoveMember"
	OpGenerateInvite     = "GenerateGroupInvite"
	OpUpdateGroup        = "UpdateGroup"
)

// Operation is one persisted GraphQL document and the data field it answers in.
type Operation struct {
	Name  string
	Field string
	Query string
}

const groupFields = `
    id
    slug
    name
    description
    icon
    type
    membersCount
    inviteToken
    isMember
    hasPendingRequest
    isAdmin
    members { id name username avatar }
    joinRequests { id name username avatar }`

var Operations = map[string]Operation{
	OpGroupByInviteToken: {
		Name:  OpGroupByInviteToken,
		Field: "groupByInviteToken",
		Query: `query GroupByInviteToken($token: String!) {
  groupByInviteToken(token: $token) {` + groupFields + `
  }
}`,
	},
	OpGetGroup: {
		Name:  OpGetGroup,
		Field: "group",
		Query: `query GetGroup($slug: String!) {
  group(slug: $slug) {` + groupFields + `
  }
}`,
	},
	OpRequestJoinGroup: {
		Name:  OpRequestJoinGroup,
		Field: "requestJoinGroup",
		Query: `mutation RequestJoinGroup($groupId: ID!, $token: String!) {
  requestJoinGroup(groupId: $groupId, token: $token)
}`,
	},
	OpAcceptJoinRequest: {
		Name:  OpAcceptJoinRequest,
		Field: "acceptJoinRequest",
		Query: `mutation AcceptJoinRequest($groupId: ID!, $userId: ID!) {
  acceptJoinRequest(groupId: $groupId, userId: $userId)
}`,
	},
	OpRejectJoinRequest: {
		Name:  OpRejectJoinRequest,
		Field: "rejectJoinRequest",
		Query: `mutation RejectJoinRequest($groupId: ID!, $userId: ID!) {
  rejectJoinRequest(groupId: $groupId, userId: $userId)
}`,
	},
	OpRemoveMember: {
		Name:  OpRemoveMember,
		Field: "removeMember",
		Query: `mutation RemoveMember($groupId: ID!, $userId: ID!) {
  removeMember(groupId: $groupId, userId: $userId)
}`,
	},
	OpGenerateInvite: {
		Name:  OpGenerateInvite,
		Field: "generateGroupInvite",
		Query: `mutation GenerateGroupInvite($groupId: ID!) {
  generateGroupInvite(groupId: $groupId)
}`,
	},
	OpUpdateGroup: {
		Name:  OpUpdateGroup,
		Field: "updateGroup",
		Query: `mutation UpdateGroup($groupId: ID!, $name: String!, $description: String!, $icon: String) {
  updateGroup(groupId: $groupId, name: $name, description: $description, icon: $icon) {` + groupFields + `
  }
}`,
	},
}

type TokenVars struct {
	Token string `json:"token"`
}

type SlugVars struct {
	Slug string `json:"slug"`
}

type RequestJoinVars struct {
	GroupID string `json:"groupId"`
	Token   string `json:"token"`
}

type MembershipVars struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

type GroupVars struct {
	GroupID string `json:"groupId"`
}

// Request is the GraphQL-over-HTTP request body.
type Request struct {
	OperationName string          `json:"operationName"`
	Query         string          `json:"query"`
	Variables     json.RawMessage `json:"variables,omitempty"`
}

// Response is the GraphQL-over-HTTP response body.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []ResponseError `json:"errors,omitempty"`
}

type ResponseError struct {
	Message    string           `json:"message"`
	Extensions *ErrorExtensions `json:"extensions,omitempty"`
}

type ErrorExtensions struct {
	Code string `json:"code"`
}
