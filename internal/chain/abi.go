package chain

// blueChainCarbonABI is the fixed, externally owned BlueChainCarbon contract
// interface deployed on Polygon Amoy. Only the subset the platform calls is
// declared here.
const blueChainCarbonABI = `[
  {"type":"function","name":"mintCredit","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"},{"name":"metadataURI","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"listCredit","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"buyCredit","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"delistCredit","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"retireCredit","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"rateSeller","stateMutability":"nonpayable","inputs":[{"name":"seller","type":"address"},{"name":"rating","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"getListingPrice","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"isListed","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"isRetired","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getSellerRating","stateMutability":"view","inputs":[{"name":"seller","type":"address"}],"outputs":[{"name":"","type":"uint256"},{"name":"","type":"uint256"}]},
  {"type":"function","name":"isVerifier","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"CreditMinted","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"metadataURI","type":"string","indexed":false}],"anonymous":false},
  {"type":"event","name":"CreditListed","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"CreditSold","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"CreditDelisted","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true}],"anonymous":false},
  {"type":"event","name":"CreditRetired","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"owner","type":"address","indexed":true}],"anonymous":false},
  {"type":"event","name":"SellerRated","inputs":[{"name":"seller","type":"address","indexed":true},{"name":"rater","type":"address","indexed":true},{"name":"rating","type":"uint8","indexed":false}],"anonymous":false}
]`
