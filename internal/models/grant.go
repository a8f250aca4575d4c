package models

// WildcardApplication is the special AppGrant application name that grants
// a Group permission to install every application on a Cluster.
const WildcardApplication = "*"

// AccessGrant and AppGrant are pure presence relations: there is no record
// beyond the composite key, so they have no Go struct counterpart in the
// store beyond the relation multimaps in internal/store. They are
// documented here so their semantics are discoverable alongside the other
// entities.
//
// AccessGrant(cluster, group): presence means group may use cluster.
// AppGrant(cluster, group, application): presence means group may install
// application on cluster; application may be models.WildcardApplication.
