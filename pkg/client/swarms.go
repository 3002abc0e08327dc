package client

import "context"

// SwarmsResource coordinates multi-agent swarms, their members and tasks.
type SwarmsResource struct{ c *Client }

// Create forms a swarm. SwarmType defaults to "general" and MaxMembers to 10.
func (r *SwarmsResource) Create(ctx context.Context, p CreateSwarmParams) (*Swarm, error) {
	if p.Name == "" {
		return nil, missing("name")
	}
	if p.OrchestratorAgentID == "" {
		return nil, missing("orchestrator_agent_id")
	}
	swarmType := p.SwarmType
	if swarmType == "" {
		swarmType = "general"
	}
	maxMembers := p.MaxMembers
	if maxMembers <= 0 {
		maxMembers = 10
	}
	body := map[string]any{
		"name":                  p.Name,
		"description":           p.Description,
		"orchestrator_agent_id": p.OrchestratorAgentID,
		"swarm_type":            swarmType,
		"max_members":           maxMembers,
		"is_public":             p.IsPublic,
	}
	if p.Config != nil {
		body["config"] = p.Config
	}
	var out Swarm
	if err := r.c.post(ctx, "/swarms", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a swarm by ID.
func (r *SwarmsResource) Get(ctx context.Context, swarmID string) (*Swarm, error) {
	p, err := route("/swarms", seg("swarm id", swarmID))
	if err != nil {
		return nil, err
	}
	var out Swarm
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSwarmsOptions filters SwarmsResource.List. A nil IsPublic applies no
// visibility filter. Limit defaults to 20.
type ListSwarmsOptions struct {
	IsPublic *bool
	Limit    int
	Offset   int
}

// List returns swarms matching opts.
func (r *SwarmsResource) List(ctx context.Context, opts ListSwarmsOptions) (*ListResponse[Swarm], error) {
	params := pageParams(opts.Limit, opts.Offset, 20)
	params["is_public"] = opts.IsPublic
	return getList[Swarm](ctx, r.c, "/swarms", "swarms", params)
}

// AddMemberOptions tunes SwarmsResource.AddMember. Role defaults to
// "worker"; a nil IsContestable means true.
type AddMemberOptions struct {
	Role           string
	Specialization string
	IsContestable  *bool
}

// AddMember enrolls an agent in a swarm.
func (r *SwarmsResource) AddMember(ctx context.Context, swarmID, agentID string, opts AddMemberOptions) (*SwarmMember, error) {
	p, err := route("/swarms", seg("swarm id", swarmID), lit("members"))
	if err != nil {
		return nil, err
	}
	if agentID == "" {
		return nil, missing("agent_id")
	}
	role := opts.Role
	if role == "" {
		role = "worker"
	}
	contestable := true
	if opts.IsContestable != nil {
		contestable = *opts.IsContestable
	}
	body := map[string]any{
		"agent_id":       agentID,
		"role":           role,
		"is_contestable": contestable,
	}
	if opts.Specialization != "" {
		body["specialization"] = opts.Specialization
	}
	var out SwarmMember
	if err := r.c.post(ctx, p, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMembers returns a swarm's members.
func (r *SwarmsResource) ListMembers(ctx context.Context, swarmID string) (*ListResponse[SwarmMember], error) {
	p, err := route("/swarms", seg("swarm id", swarmID), lit("members"))
	if err != nil {
		return nil, err
	}
	return getList[SwarmMember](ctx, r.c, p, "members", nil)
}

// RemoveMember drops an agent from a swarm.
func (r *SwarmsResource) RemoveMember(ctx context.Context, swarmID, agentID string) error {
	p, err := route("/swarms", seg("swarm id", swarmID), lit("members"), seg("agent id", agentID))
	if err != nil {
		return err
	}
	return r.c.delete(ctx, p)
}

// CreateTaskOptions tunes SwarmsResource.CreateTask. TaskType defaults to
// "general".
type CreateTaskOptions struct {
	TaskType      string
	ClientAgentID string
}

// CreateTask submits a task to a swarm's orchestrator.
func (r *SwarmsResource) CreateTask(ctx context.Context, swarmID, title, description string, opts CreateTaskOptions) (*SwarmTask, error) {
	p, err := route("/swarms", seg("swarm id", swarmID), lit("tasks"))
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, missing("title")
	}
	taskType := opts.TaskType
	if taskType == "" {
		taskType = "general"
	}
	body := map[string]any{
		"title":       title,
		"description": description,
		"task_type":   taskType,
	}
	if opts.ClientAgentID != "" {
		body["client_agent_id"] = opts.ClientAgentID
	}
	var out SwarmTask
	if err := r.c.post(ctx, p, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask fetches a task by ID.
func (r *SwarmsResource) GetTask(ctx context.Context, swarmID, taskID string) (*SwarmTask, error) {
	p, err := route("/swarms", seg("swarm id", swarmID), lit("tasks"), seg("task id", taskID))
	if err != nil {
		return nil, err
	}
	var out SwarmTask
	if err := r.c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasksOptions filters SwarmsResource.ListTasks. Limit defaults to 20.
type ListTasksOptions struct {
	Status string
	Limit  int
	Offset int
}

// ListTasks returns a swarm's tasks.
func (r *SwarmsResource) ListTasks(ctx context.Context, swarmID string, opts ListTasksOptions) (*ListResponse[SwarmTask], error) {
	p, err := route("/swarms", seg("swarm id", swarmID), lit("tasks"))
	if err != nil {
		return nil, err
	}
	params := pageParams(opts.Limit, opts.Offset, 20)
	params["status"] = opts.Status
	return getList[SwarmTask](ctx, r.c, p, "tasks", params)
}

// AssignSubtask hands a subtask to a worker agent.
func (r *SwarmsResource) AssignSubtask(ctx context.Context, swarmID, taskID, subtaskID, agentID, description string) (*SwarmTask, error) {
	p, err := route("/swarms", seg("swarm id", swarmID), lit("tasks"), seg("task id", taskID), lit("assign"))
	if err != nil {
		return nil, err
	}
	if subtaskID == "" {
		return nil, missing("subtask_id")
	}
	body := map[string]any{"subtask_id": subtaskID, "agent_id": agentID, "description": description}
	var out SwarmTask
	if err := r.c.post(ctx, p, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteSubtask records a subtask's result.
func (r *SwarmsResource) CompleteSubtask(ctx context.Context, swarmID, taskID, subtaskID string, result JSONObject) (*SwarmTask, error) {
	p, err := route("/swarms", seg("swarm id", swarmID), lit("tasks"), seg("task id", taskID), lit("complete"))
	if err != nil {
		return nil, err
	}
	if subtaskID == "" {
		return nil, missing("subtask_id")
	}
	if result == nil {
		result = JSONObject{}
	}
	var out SwarmTask
	if err := r.c.post(ctx, p, map[string]any{"subtask_id": subtaskID, "result": result}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
