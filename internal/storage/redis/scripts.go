package redis

const (
	// clearTimingsScript atomically deletes every application hash listed in
	// the apps set, the set itself, and stamps the meta hash
	clearTimingsScript = `
local apps_key = KEYS[1]       -- focustime:apps
local meta_key = KEYS[2]       -- focustime:meta

local app_prefix = ARGV[1]     -- focustime:app:
local saved_at = ARGV[2]

local apps = redis.call('SMEMBERS', apps_key)
for _, app in ipairs(apps) do
  redis.call('DEL', app_prefix .. app)
end
redis.call('DEL', apps_key)

redis.call('HSET', meta_key,
  'saved_at', saved_at,
  'applications', 0,
  'records', 0
)

return #apps
`
)
